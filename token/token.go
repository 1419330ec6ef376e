// SPDX-License-Identifier: MIT

// Package token implements the bijection between a caller-visible alphabet
// of symbols and compact integer tokens.
//
// Token 0 is always reserved for epsilon (the empty symbol); real symbols
// occupy tokens 1..K in the order they were supplied to New.
package token

import (
	"github.com/wfstlab/wfstcore/wfsterr"
)

// Epsilon is the reserved token for the empty symbol.
const Epsilon = 0

// Tokenizer is a total, bijective mapping between symbols and tokens for
// one alphabet (input or output side; the two sides are tokenized
// independently).
type Tokenizer struct {
	symToTok map[string]int
	tokToSym []string // index 0 is the epsilon placeholder, "" by convention
}

// New builds a Tokenizer assigning tokens 1..len(symbols) to symbols in
// order, preserving duplicates as a no-op (the first occurrence wins).
func New(symbols []string) *Tokenizer {
	t := &Tokenizer{
		symToTok: make(map[string]int, len(symbols)+1),
		tokToSym: make([]string, 1, len(symbols)+1),
	}
	t.tokToSym[Epsilon] = ""

	for _, sym := range symbols {
		if _, exists := t.symToTok[sym]; exists {
			continue
		}
		tok := len(t.tokToSym)
		t.symToTok[sym] = tok
		t.tokToSym = append(t.tokToSym, sym)
	}

	return t
}

// Len returns the number of real symbols (excluding epsilon).
func (t *Tokenizer) Len() int {
	return len(t.tokToSym) - 1
}

// Tok maps a symbol to its token. The empty string maps to Epsilon.
func (t *Tokenizer) Tok(sym string) (int, error) {
	if sym == "" {
		return Epsilon, nil
	}
	tok, ok := t.symToTok[sym]
	if !ok {
		return 0, wfsterr.Wrap("token", "Tok", wfsterr.ErrUnknownSymbol)
	}

	return tok, nil
}

// Sym maps a token back to its symbol. Epsilon maps to "".
func (t *Tokenizer) Sym(tok int) (string, error) {
	if tok < 0 || tok >= len(t.tokToSym) {
		return "", wfsterr.Wrap("token", "Sym", wfsterr.ErrUnknownSymbol)
	}

	return t.tokToSym[tok], nil
}

// Tokenize maps each symbol in sequence to its token, failing with
// ErrUnknownSymbol at the first unrecognised symbol.
func (t *Tokenizer) Tokenize(sequence []string) ([]int, error) {
	toks := make([]int, len(sequence))
	for i, sym := range sequence {
		tok, err := t.Tok(sym)
		if err != nil {
			return nil, wfsterr.Wrap("token", "Tokenize", err)
		}
		toks[i] = tok
	}

	return toks, nil
}

// SPDX-License-Identifier: MIT

package wfst

import (
	"context"

	"github.com/wfstlab/wfstcore/counts"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/objective"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// EMOptions configures one call to EM.
type EMOptions struct {
	// Workers bounds counts.AddAll's parallel fan-out over pairs. <=0
	// means sequential (one worker).
	Workers int

	// Objective overrides the BFGS search's tunables. The zero value
	// means objective.DefaultConfig().
	Objective objective.Config
}

// EMResult is the outcome of one EM iteration: the re-estimated
// parameters, the E-step's accumulated counts and log-likelihood, and the
// M-step's optimiser result.
type EMResult struct {
	Counts    *counts.MachineCounts
	Objective objective.Result
}

// EM runs one complete EM iteration (spec.md §1's "Forward, Backward,
// E-step and M-step... together forming one EM iteration"): it evaluates
// m under seed, accumulates posterior transition counts over pairs
// (E-step), builds the symbolic objective against those counts, and
// minimises it under constraints starting from seed (M-step).
func EM(ctx context.Context, m *machine.Machine, seed machine.Params, pairs []counts.SeqPair, c machine.Constraints, opts EMOptions) (EMResult, error) {
	em, err := machine.NewEvaluated(m, seed)
	if err != nil {
		return EMResult{}, wfsterr.Wrap("wfst", "EM", err)
	}

	mc, err := counts.AddAll(ctx, em, pairs, opts.Workers)
	if err != nil {
		return EMResult{}, wfsterr.Wrap("wfst", "EM", err)
	}

	obj, err := objective.Build(m, mc, c, seed)
	if err != nil {
		return EMResult{}, wfsterr.Wrap("wfst", "EM", err)
	}

	cfg := opts.Objective
	if cfg.MaxIterations == 0 {
		cfg = objective.DefaultConfig()
		cfg.Recorder = opts.Objective.Recorder
	}

	res, err := obj.Minimize(c, cfg)
	if err != nil {
		return EMResult{}, wfsterr.Wrap("wfst", "EM", err)
	}

	return EMResult{Counts: mc, Objective: res}, nil
}

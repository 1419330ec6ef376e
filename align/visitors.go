// SPDX-License-Identifier: MIT

package align

import (
	"container/heap"

	"github.com/wfstlab/wfstcore/machine"
)

// TransitionCounter is the CountVisitor that accumulates posterior
// transition usage into a dense count[state][transIndex] array, the shape
// package counts.MachineCounts owns (spec.md §4.5's "transition counter").
type TransitionCounter struct {
	// Count[s][transIndex] accumulates expected usage; callers pre-size it
	// to match the machine shape (see counts.Init).
	Count [][]float64
}

// Visit implements CountVisitor.
func (c *TransitionCounter) Visit(_, _, _, _, _, _ int, trans machine.EvaluatedTransition, posterior float64) {
	c.Count[trans.Src][trans.TransIndex] += posterior
}

// PosteriorEntry is one (posterior, source cell, destination cell,
// transition) tuple emitted
// by TransitionSorter, suitable for a caller-owned priority queue used in
// best-path decoding (spec.md §4.5's "transition sorter").
type PosteriorEntry struct {
	I, J, S   int
	I2, J2, D int
	Trans     machine.EvaluatedTransition
	Posterior float64
}

// TransitionSorter is the CountVisitor that collects every delivered tuple
// into a max-heap ordered by Posterior, descending.
type TransitionSorter struct {
	heap posteriorHeap
}

// Visit implements CountVisitor.
func (s *TransitionSorter) Visit(i, j, st, i2, j2, d int, trans machine.EvaluatedTransition, posterior float64) {
	heap.Push(&s.heap, PosteriorEntry{I: i, J: j, S: st, I2: i2, J2: j2, D: d, Trans: trans, Posterior: posterior})
}

// Pop removes and returns the highest-posterior entry collected so far, or
// ok=false if none remain.
func (s *TransitionSorter) Pop() (PosteriorEntry, bool) {
	if s.heap.Len() == 0 {
		return PosteriorEntry{}, false
	}

	return heap.Pop(&s.heap).(PosteriorEntry), true
}

// Len reports how many entries remain.
func (s *TransitionSorter) Len() int { return s.heap.Len() }

// posteriorHeap is a container/heap.Interface over PosteriorEntry, ordered
// so the largest Posterior pops first.
type posteriorHeap []PosteriorEntry

func (h posteriorHeap) Len() int            { return len(h) }
func (h posteriorHeap) Less(i, j int) bool  { return h[i].Posterior > h[j].Posterior }
func (h posteriorHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *posteriorHeap) Push(x interface{}) { *h = append(*h, x.(PosteriorEntry)) }
func (h *posteriorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}

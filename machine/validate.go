// SPDX-License-Identifier: MIT

package machine

import (
	"fmt"

	"github.com/wfstlab/wfstcore/wfsterr"
)

// Validate checks the two structural invariants spec.md §3 requires:
//
//   - advancing: every null (epsilon-input AND epsilon-output) transition
//     goes from a lower state index to a strictly higher one, so the null
//     closure can never cycle.
//   - aligning: no state has two outgoing transitions sharing the same
//     (InTok, OutTok) pair.
//
// Validate returns wfsterr.ErrNotAdvancing or wfsterr.ErrNotAligning on the
// first violation found, in state order.
func (m *Machine) Validate() error {
	for s, trs := range m.Outgoing {
		seen := make(map[[2]int]bool, len(trs))
		for _, t := range trs {
			if t.Src != s {
				return wfsterr.Wrap("machine", "Validate",
					fmt.Errorf("transition src %d stored under state %d: %w", t.Src, s, wfsterr.ErrBadInput))
			}

			if t.InTok == 0 && t.OutTok == 0 && t.Dest <= s {
				return wfsterr.Wrap("machine", "Validate", wfsterr.ErrNotAdvancing)
			}

			key := [2]int{t.InTok, t.OutTok}
			if seen[key] {
				return wfsterr.Wrap("machine", "Validate", wfsterr.ErrNotAligning)
			}
			seen[key] = true
		}
	}

	return nil
}

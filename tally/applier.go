package tally

import (
	"fmt"
	"sort"
)

// ApplyPending is the Parameter Change Applier. Called once per
// committed block with that block's height; if any ChangeParam decisions
// were scheduled for this exact height (by a prior RunCycle, at the
// boundary cycle's RESULT), it flushes them to the Param Registry in
// ascending Param identifier order. Any failing append is fatal
// (StaleOverride): it indicates a height regression and the caller
// should treat the returned error as unrecoverable.
func (e *Engine) ApplyPending(height int32) error {
	changes := e.pendingParamChanges[height]
	if len(changes) == 0 {
		return nil
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].id < changes[j].id })
	for _, c := range changes {
		if err := e.reg.AppendOverride(c.id, height, c.value); err != nil {
			return fmt.Errorf("tally: fatal param applier error at height %d: %w", height, err)
		}
	}
	delete(e.pendingParamChanges, height)
	return nil
}

// IssuanceDueAt returns the compensation issuances scheduled to land at
// height, consuming them. By the time this is called the block at height
// has already been parsed against the same due list (see
// PendingIssuanceAt), so the payout tx's outputs are already ISSUANCE in
// the committed ledger; this is the bookkeeping/logging read, not the one
// the classifier relies on.
func (e *Engine) IssuanceDueAt(height int32) []IssuanceDue {
	due := e.pendingIssuance[height]
	delete(e.pendingIssuance, height)
	return due
}

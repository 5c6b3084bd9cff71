// Package period implements the Period Service: the cycle and
// phase state machine that maps block height to a DaoPhase, deterministically,
// from snapshotted per-cycle durations read out of the Param Registry.
package period

import (
	"fmt"

	"github.com/govblock/daoengine/param"
)

// Phase is one of the eight ordered sub-ranges of a Cycle, plus the
// UNDEFINED sentinel that precedes the first cycle.
type Phase int

const (
	Undefined Phase = iota
	Proposal
	Break1
	BlindVote
	Break2
	VoteReveal
	Break3
	Result
	Break4
)

// order is the fixed phase sequence every cycle walks, paired with the
// Param id its duration is snapshotted from.
var order = []struct {
	phase Phase
	id    param.ID
}{
	{Proposal, param.PhaseProposalBlocks},
	{Break1, param.PhaseBreak1Blocks},
	{BlindVote, param.PhaseBlindVoteBlocks},
	{Break2, param.PhaseBreak2Blocks},
	{VoteReveal, param.PhaseVoteRevealBlocks},
	{Break3, param.PhaseBreak3Blocks},
	{Result, param.PhaseResultBlocks},
	{Break4, param.PhaseBreak4Blocks},
}

func (p Phase) String() string {
	switch p {
	case Proposal:
		return "PROPOSAL"
	case Break1:
		return "BREAK1"
	case BlindVote:
		return "BLIND_VOTE"
	case Break2:
		return "BREAK2"
	case VoteReveal:
		return "VOTE_REVEAL"
	case Break3:
		return "BREAK3"
	case Result:
		return "RESULT"
	case Break4:
		return "BREAK4"
	default:
		return "UNDEFINED"
	}
}

// span is one phase's [first, last] inclusive block-height range within a
// concrete cycle.
type span struct {
	phase Phase
	first int32
	last  int32
}

// Cycle is a fixed-length sequence of phases at the block-height layer.
// Durations are snapshotted once, at FirstBlock, from the
// Param Registry and are immutable for the life of the cycle.
type Cycle struct {
	Index      uint32
	FirstBlock int32
	spans      []span
}

// LastBlock is the final height covered by this cycle (the last block of
// BREAK4).
func (c *Cycle) LastBlock() int32 {
	return c.spans[len(c.spans)-1].last
}

// PhaseAt returns the phase containing height, or Undefined if height is
// outside this cycle's range.
func (c *Cycle) PhaseAt(height int32) Phase {
	for _, s := range c.spans {
		if height >= s.first && height <= s.last {
			return s.phase
		}
	}
	return Undefined
}

// FirstBlockOf returns the first height of phase within this cycle.
func (c *Cycle) FirstBlockOf(phase Phase) (int32, bool) {
	for _, s := range c.spans {
		if s.phase == phase {
			return s.first, true
		}
	}
	return 0, false
}

// LastBlockOf returns the last height of phase within this cycle.
func (c *Cycle) LastBlockOf(phase Phase) (int32, bool) {
	for _, s := range c.spans {
		if s.phase == phase {
			return s.last, true
		}
	}
	return 0, false
}

// newCycle snapshots durations from reg as of firstBlock and lays out the
// eight phase spans back-to-back.
func newCycle(index uint32, firstBlock int32, reg *param.Registry) (*Cycle, error) {
	c := &Cycle{Index: index, FirstBlock: firstBlock}
	cursor := firstBlock
	for _, o := range order {
		dur := reg.Value(o.id, firstBlock)
		if dur <= 0 {
			return nil, fmt.Errorf("period: non-positive duration for %s at height %d: %d", o.id, firstBlock, dur)
		}
		last := cursor + int32(dur) - 1
		c.spans = append(c.spans, span{phase: o.phase, first: cursor, last: last})
		cursor = last + 1
	}
	return c, nil
}

// Service is the Period Service. It holds every cycle created so far,
// created lazily as the ledger advances past the previous cycle's BREAK4.
// Cycle disjointness is guaranteed by construction:
// each new cycle starts exactly one block after the previous one's last.
type Service struct {
	reg           *param.Registry
	genesisHeight int32
	cycles        []*Cycle
}

// NewService constructs a Period Service anchored at genesisHeight: the
// first cycle begins at that height.
func NewService(reg *param.Registry, genesisHeight int32) *Service {
	return &Service{reg: reg, genesisHeight: genesisHeight}
}

// AdvanceTo ensures cycles exist to cover height, creating new ones as
// needed starting right after the previous cycle's last block. Must be
// called in non-decreasing height order, matching the block-ingest loop's
// single-pass ordering guarantee.
func (s *Service) AdvanceTo(height int32) error {
	if height < s.genesisHeight {
		return nil
	}
	for len(s.cycles) == 0 || height > s.cycles[len(s.cycles)-1].LastBlock() {
		var first int32
		var idx uint32
		if len(s.cycles) == 0 {
			first = s.genesisHeight
			idx = 0
		} else {
			last := s.cycles[len(s.cycles)-1]
			first = last.LastBlock() + 1
			idx = last.Index + 1
		}
		c, err := newCycle(idx, first, s.reg)
		if err != nil {
			return err
		}
		s.cycles = append(s.cycles, c)
	}
	return nil
}

// CycleOf returns the cycle containing height. AdvanceTo must already have
// been called for a height at or beyond it.
func (s *Service) CycleOf(height int32) (*Cycle, bool) {
	for _, c := range s.cycles {
		if height >= c.FirstBlock && height <= c.LastBlock() {
			return c, true
		}
	}
	return nil, false
}

// CycleByIndex returns the cycle with the given index, if already created.
func (s *Service) CycleByIndex(idx uint32) (*Cycle, bool) {
	for _, c := range s.cycles {
		if c.Index == idx {
			return c, true
		}
	}
	return nil, false
}

// PhaseFor returns the phase containing height.
func (s *Service) PhaseFor(height int32) Phase {
	c, ok := s.CycleOf(height)
	if !ok {
		return Undefined
	}
	return c.PhaseAt(height)
}

// FirstBlockOf returns the first block of phase within the cycle containing
// height.
func (s *Service) FirstBlockOf(phase Phase, height int32) (int32, bool) {
	c, ok := s.CycleOf(height)
	if !ok {
		return 0, false
	}
	return c.FirstBlockOf(phase)
}

// LastBlockOf returns the last block of phase within the cycle containing
// height.
func (s *Service) LastBlockOf(phase Phase, height int32) (int32, bool) {
	c, ok := s.CycleOf(height)
	if !ok {
		return 0, false
	}
	return c.LastBlockOf(phase)
}

// IsInPhaseButNotLast reports whether height sits inside phase but is not
// that phase's final block, the single gate used to forbid
// Ballot.Vote mutation past the proposal window's last block.
func (s *Service) IsInPhaseButNotLast(phase Phase, height int32) bool {
	c, ok := s.CycleOf(height)
	if !ok {
		return false
	}
	if c.PhaseAt(height) != phase {
		return false
	}
	last, ok := c.LastBlockOf(phase)
	return ok && height != last
}

// PhaseChanged reports whether the phase at newHeight differs from the
// phase at newHeight-1, the condition under which a PhaseChanged event fires
// on.
func (s *Service) PhaseChanged(newHeight int32) bool {
	return s.PhaseFor(newHeight) != s.PhaseFor(newHeight-1)
}

package period

import (
	"testing"

	"github.com/govblock/daoengine/param"
)

func newTestRegistry() *param.Registry {
	return param.NewRegistry(map[param.ID]int64{
		param.PhaseProposalBlocks:   3,
		param.PhaseBreak1Blocks:     1,
		param.PhaseBlindVoteBlocks:  3,
		param.PhaseBreak2Blocks:     1,
		param.PhaseVoteRevealBlocks: 3,
		param.PhaseBreak3Blocks:     1,
		param.PhaseResultBlocks:     1,
		param.PhaseBreak4Blocks:     1,
	})
}

func Test_Service_AdvanceTo_firstCycleLayout(t *testing.T) {
	s := NewService(newTestRegistry(), 100)

	if err := s.AdvanceTo(100); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}

	c, ok := s.CycleOf(100)
	if !ok {
		t.Fatalf("expected a cycle at height 100")
	}
	if c.Index != 0 {
		t.Errorf("index = %d, want 0", c.Index)
	}
	if got := c.PhaseAt(100); got != Proposal {
		t.Errorf("phase at first block = %s, want PROPOSAL", got)
	}
	if got := c.PhaseAt(102); got != Proposal {
		t.Errorf("phase at 102 = %s, want PROPOSAL (3 blocks)", got)
	}
	if got := c.PhaseAt(103); got != Break1 {
		t.Errorf("phase at 103 = %s, want BREAK1", got)
	}
	if got := c.PhaseAt(104); got != BlindVote {
		t.Errorf("phase at 104 = %s, want BLIND_VOTE", got)
	}
	if got := c.PhaseAt(113); got != Break4 {
		t.Errorf("phase at %d = %s, want BREAK4", 113, got)
	}
	if last := c.LastBlock(); last != 113 {
		t.Errorf("LastBlock = %d, want 113 (3+1+3+1+3+1+1+1-1=13 blocks from 100)", last)
	}
}

func Test_Service_AdvanceTo_secondCycleStartsAfterFirst(t *testing.T) {
	s := NewService(newTestRegistry(), 100)
	if err := s.AdvanceTo(100); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	first, _ := s.CycleOf(100)
	lastOfFirst := first.LastBlock()

	if err := s.AdvanceTo(lastOfFirst + 1); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	second, ok := s.CycleOf(lastOfFirst + 1)
	if !ok {
		t.Fatalf("expected a second cycle")
	}
	if second.Index != 1 {
		t.Errorf("index = %d, want 1", second.Index)
	}
	if second.FirstBlock != lastOfFirst+1 {
		t.Errorf("second cycle FirstBlock = %d, want %d", second.FirstBlock, lastOfFirst+1)
	}
}

func Test_Service_PhaseChanged(t *testing.T) {
	s := NewService(newTestRegistry(), 100)
	if err := s.AdvanceTo(113); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}

	if !s.PhaseChanged(100) {
		t.Errorf("height 100 (UNDEFINED -> PROPOSAL) should report a phase change")
	}
	if s.PhaseChanged(101) {
		t.Errorf("height 101 stays in PROPOSAL, should not report a phase change")
	}
	if !s.PhaseChanged(103) {
		t.Errorf("height 103 (PROPOSAL -> BREAK1) should report a phase change")
	}
}

func Test_Service_IsInPhaseButNotLast(t *testing.T) {
	s := NewService(newTestRegistry(), 100)
	if err := s.AdvanceTo(113); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}

	if !s.IsInPhaseButNotLast(Proposal, 100) {
		t.Errorf("height 100 is PROPOSAL's first of three blocks, want true")
	}
	if s.IsInPhaseButNotLast(Proposal, 102) {
		t.Errorf("height 102 is PROPOSAL's last block, want false")
	}
	if s.IsInPhaseButNotLast(Proposal, 103) {
		t.Errorf("height 103 is BREAK1, not PROPOSAL, want false")
	}
}

func Test_Service_AdvanceTo_nonPositiveDuration(t *testing.T) {
	reg := param.NewRegistry(map[param.ID]int64{
		param.PhaseProposalBlocks:   0,
		param.PhaseBreak1Blocks:     1,
		param.PhaseBlindVoteBlocks:  1,
		param.PhaseBreak2Blocks:     1,
		param.PhaseVoteRevealBlocks: 1,
		param.PhaseBreak3Blocks:     1,
		param.PhaseResultBlocks:     1,
		param.PhaseBreak4Blocks:     1,
	})
	s := NewService(reg, 0)
	if err := s.AdvanceTo(0); err == nil {
		t.Fatal("expected an error for a non-positive phase duration")
	}
}

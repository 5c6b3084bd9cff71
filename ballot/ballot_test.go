package ballot

import (
	"testing"

	"github.com/govblock/daoengine/govblock"
	"github.com/govblock/daoengine/param"
	"github.com/govblock/daoengine/period"
)

func txid(b byte) govblock.Uint256 {
	var t govblock.Uint256
	t[0] = b
	return t
}

func newTestPeriods() *period.Service {
	reg := param.NewRegistry(map[param.ID]int64{
		param.PhaseProposalBlocks:   3,
		param.PhaseBreak1Blocks:     1,
		param.PhaseBlindVoteBlocks:  3,
		param.PhaseBreak2Blocks:     1,
		param.PhaseVoteRevealBlocks: 3,
		param.PhaseBreak3Blocks:     1,
		param.PhaseResultBlocks:     1,
		param.PhaseBreak4Blocks:     1,
	})
	s := period.NewService(reg, 0)
	if err := s.AdvanceTo(13); err != nil {
		panic(err)
	}
	return s
}

func Test_Proposal_Validate(t *testing.T) {
	p := &Proposal{TxID: txid(1), Name: "n", Title: "t", Description: "d"}
	if err := p.Validate(100); err != nil {
		t.Fatalf("expected valid proposal, got %v", err)
	}

	if err := (&Proposal{TxID: txid(2), Title: "t"}).Validate(100); err == nil {
		t.Error("expected error for empty name")
	}
	if err := (&Proposal{TxID: txid(3), Name: "n"}).Validate(100); err == nil {
		t.Error("expected error for empty title")
	}
	if err := (&Proposal{TxID: txid(4), Name: "n", Title: "t", Description: "toolong"}).Validate(3); err == nil {
		t.Error("expected error for description exceeding the max length")
	}
	if err := (&Proposal{TxID: txid(5), Name: "n", Title: "t", Link: "not a url"}).Validate(100); err == nil {
		t.Error("expected error for a malformed link")
	}
	if err := (&Proposal{TxID: txid(6), Name: "n", Title: "t", Link: "https://example.com/x"}).Validate(100); err != nil {
		t.Errorf("expected a well-formed link to pass, got %v", err)
	}
}

func Test_Store_AddProposal_rejectsInvalid(t *testing.T) {
	s := NewStore()
	if err := s.AddProposal(&Proposal{TxID: txid(1), Title: "t"}, 100); err == nil {
		t.Fatal("expected validation error for empty name")
	}
	if _, ok := s.Proposal(txid(1)); ok {
		t.Error("a rejected proposal must not be recorded")
	}
}

func Test_Store_AddProposal_seedsIgnoreBallot(t *testing.T) {
	s := NewStore()
	id := txid(1)
	if err := s.AddProposal(&Proposal{TxID: id, Name: "n", Title: "t"}, 100); err != nil {
		t.Fatalf("AddProposal: %v", err)
	}
	if _, ok := s.Proposal(id); !ok {
		t.Fatal("expected the proposal to be recorded")
	}
	if b, ok := s.ballots[id]; !ok || b.Vote != Ignore {
		t.Fatalf("seeded ballot = %+v/%v, want an IGNORE ballot", b, ok)
	}
	if err := s.SetVote(id, Accept, 0, newTestPeriods()); err != nil {
		t.Fatalf("SetVote during PROPOSAL phase: %v", err)
	}
}

func Test_Store_SetVote_lockedOutsidePhase(t *testing.T) {
	s := NewStore()
	id := txid(1)
	if err := s.AddProposal(&Proposal{TxID: id, Name: "n", Title: "t"}, 100); err != nil {
		t.Fatalf("AddProposal: %v", err)
	}
	periods := newTestPeriods()

	// height 2 is the last block of the PROPOSAL phase (3 blocks: 0,1,2):
	// mutation must be locked there too.
	if err := s.SetVote(id, Accept, 2, periods); err != ErrPhaseLocked {
		t.Errorf("SetVote at PROPOSAL's last block = %v, want ErrPhaseLocked", err)
	}
	// height 3 is BREAK1.
	if err := s.SetVote(id, Accept, 3, periods); err != ErrPhaseLocked {
		t.Errorf("SetVote outside PROPOSAL = %v, want ErrPhaseLocked", err)
	}
}

func Test_Store_AddVoteReveal_firstByHeightWins(t *testing.T) {
	s := NewStore()
	bvID := txid(9)

	first := &VoteReveal{TxID: txid(10), Height: 5, BlindVoteTxID: bvID}
	second := &VoteReveal{TxID: txid(11), Height: 6, BlindVoteTxID: bvID}

	s.AddVoteReveal(first)
	s.AddVoteReveal(second)

	got, ok := s.RevealFor(bvID)
	if !ok {
		t.Fatal("expected a reveal to be recorded")
	}
	if got.TxID != first.TxID {
		t.Errorf("RevealFor = %s, want the first-by-height reveal %s", got.TxID, first.TxID)
	}
}

func Test_Store_ProposalsInCycle_sortedByTxID(t *testing.T) {
	s := NewStore()
	for _, b := range []byte{3, 1, 2} {
		if err := s.AddProposal(&Proposal{TxID: txid(b), CycleIndex: 0, Name: "n", Title: "t"}, 100); err != nil {
			t.Fatalf("AddProposal: %v", err)
		}
	}
	got := s.ProposalsInCycle(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !lessUint256(got[i-1].TxID, got[i].TxID) {
			t.Errorf("ProposalsInCycle not ascending at index %d", i)
		}
	}
}

func Test_Store_BlindVotesInRange(t *testing.T) {
	s := NewStore()
	s.AddBlindVote(&BlindVote{TxID: txid(1), Height: 5})
	s.AddBlindVote(&BlindVote{TxID: txid(2), Height: 10})
	s.AddBlindVote(&BlindVote{TxID: txid(3), Height: 15})

	got := s.BlindVotesInRange(5, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

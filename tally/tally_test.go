package tally

import (
	"testing"

	"github.com/govblock/daoengine/ballot"
	"github.com/govblock/daoengine/govblock"
	"github.com/govblock/daoengine/ledger"
	"github.com/govblock/daoengine/param"
	"github.com/govblock/daoengine/period"
)

type fakeHeights struct {
	height map[govblock.Uint256]int32
	amount map[govblock.Uint256]uint64
}

func (f *fakeHeights) TxHeight(txid govblock.Uint256) (int32, bool) {
	h, ok := f.height[txid]
	return h, ok
}
func (f *fakeHeights) IssuanceAmount(txid govblock.Uint256) (uint64, bool) {
	v, ok := f.amount[txid]
	return v, ok
}

func txid(b byte) govblock.Uint256 {
	var u govblock.Uint256
	u[0] = b
	return u
}

// A condensed accept-and-apply scenario: a single ChangeParamProposal is
// accepted with stake above quorum and a 100% accept ratio.
func TestRunCycle_AcceptedAndSchedulesParamChange(t *testing.T) {
	reg := param.DefaultRegistry()
	reg.AppendOverride(param.PhaseProposalBlocks, 1, 3) // no-op, just exercising API shape

	periods := period.NewService(reg, 200)
	if err := periods.AdvanceTo(200); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	cycle, ok := periods.CycleOf(200)
	if !ok {
		t.Fatalf("no cycle at 200")
	}

	store := ballot.NewStore()
	propTxID := txid(1)
	prop := &ballot.Proposal{
		TxID:       propTxID,
		CycleIndex: cycle.Index,
		Kind:       ballot.ChangeParamProposal,
		Name:       "fee-bump",
		Title:      "Raise proposal fee",
		ParamID:    string(param.ProposalFee),
		ParamValue: 150,
	}
	if err := store.AddProposal(prop, 10000); err != nil {
		t.Fatalf("AddProposal: %v", err)
	}

	blindVoteFirst, _ := cycle.FirstBlockOf(period.BlindVote)
	voteRevealFirst, _ := cycle.FirstBlockOf(period.VoteReveal)

	key := [16]byte{1, 2, 3, 4}
	plainBallots := ballot.SerializeBallots([]ballot.BallotEntry{{ProposalTxID: propTxID, Vote: ballot.Accept}})
	ciphertext, err := ballot.EncryptAES128CBC(plainBallots, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	commitment := ballot.CommitmentHash(ciphertext)

	plainMerit := ballot.SerializeMerit(nil)
	encMerit, err := ballot.EncryptAES128CBC(plainMerit, key)
	if err != nil {
		t.Fatalf("encrypt merit: %v", err)
	}

	bvTxID := txid(2)
	store.AddBlindVote(&ballot.BlindVote{
		TxID:       bvTxID,
		Height:     blindVoteFirst,
		Stake:      10_000,
		EncBallots: ciphertext,
		EncMerit:   encMerit,
		Commitment: commitment,
	})
	store.AddVoteReveal(&ballot.VoteReveal{
		TxID:          txid(3),
		Height:        voteRevealFirst,
		BlindVoteTxID: bvTxID,
		Key:           key,
	})

	reg2 := param.DefaultRegistry()
	reg2.AppendOverride(param.QuorumChangeParam, 1, 5000)
	reg2.AppendOverride(param.ThresholdChangeParam, 1, 5000)

	engine := NewEngine(reg2, store, &fakeHeights{height: map[govblock.Uint256]int32{}, amount: map[govblock.Uint256]uint64{}})
	decisions, err := engine.RunCycle(cycle)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("want 1 decision, got %d", len(decisions))
	}
	d := decisions[0]
	if d.Outcome != Accepted {
		t.Fatalf("outcome = %v, want ACCEPTED (accept=%d reject=%d stake=%d)", d.Outcome, d.AcceptWeight, d.RejectWeight, d.TotalStake)
	}

	nextFirst := cycle.LastBlock() + 1
	if got := reg2.Value(param.ProposalFee, nextFirst-1); got != 100 {
		t.Errorf("fee before boundary = %d, want old default 100", got)
	}
	if err := engine.ApplyPending(nextFirst); err != nil {
		t.Fatalf("ApplyPending: %v", err)
	}
	if got := reg2.Value(param.ProposalFee, nextFirst); got != 150 {
		t.Errorf("fee at boundary = %d, want 150", got)
	}
}

// mergeMerit's real dependency is ledger.State, not a test double: a
// compensation issuance only carries weight once the Block Parser has
// actually tagged a payout tx's output ISSUANCE. This wires a real
// ledger.State through ScheduleIssuance/ParseBlock exactly the way the
// block-ingest loop does, instead of a fakeHeights map that would pass
// even if the classifier never produced an ISSUANCE output at all.
func TestMergeMerit_RealLedgerIssuance(t *testing.T) {
	genesisTx := &govblock.RawTx{Version: 1, TxOuts: []*govblock.RawTxOut{{Value: 10}}}
	genesisTxID := genesisTx.Hash()

	proposalTxID := govblock.Uint256{9, 9, 9}
	issuanceTx := &govblock.RawTx{
		Version: 1,
		TxIns:   []*govblock.RawTxIn{{PrevOut: govblock.OutPoint{Hash: proposalTxID, N: 0}, Sequence: 0xffffffff}},
		TxOuts:  []*govblock.RawTxOut{{Value: 500}},
	}
	issuanceTxID := issuanceTx.Hash()

	state := ledger.NewState(ledger.Config{GenesisTxID: genesisTxID, GenesisHeight: 100, TotalSupply: 1000})
	state.ScheduleIssuance(proposalTxID, 500)

	raw := &govblock.RawBlock{
		RawBlockHeader: &govblock.RawBlockHeader{Version: 1, PrevHash: govblock.Uint256{}, Time: 100},
		Txs:            govblock.RawTxList{genesisTx, issuanceTx},
	}
	if _, err := state.ParseBlock(raw, 100); err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}

	if amount, ok := state.IssuanceAmount(issuanceTxID); !ok || amount != 500 {
		t.Fatalf("IssuanceAmount = %d/%v, want 500/true", amount, ok)
	}

	engine := NewEngine(param.DefaultRegistry(), ballot.NewStore(), state)
	weight := engine.mergeMerit([]ballot.MeritEntry{{IssuanceTxID: issuanceTxID}}, 110)
	if weight == 0 {
		t.Fatalf("mergeMerit against a real ledger.State returned 0 weight; issuance wiring is dead")
	}
}

func TestDecayWeight_Bounds(t *testing.T) {
	if w := decayWeight(1000, 100, 100); w != 1000 {
		t.Errorf("age 0 decay = %d, want full 1000", w)
	}
	if w := decayWeight(1000, 0, HalfLifeBlocks); w != 0 {
		t.Errorf("age == half-life decay should be 0, got %d", w)
	}
	if w := decayWeight(1000, 0, HalfLifeBlocks*10); w != 0 {
		t.Errorf("very old merit should clamp to 0, got %d", w)
	}
}

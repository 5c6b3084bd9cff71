package tally

import (
	"sort"

	"github.com/govblock/daoengine/ballot"
	"github.com/govblock/daoengine/govblock"
	"github.com/govblock/daoengine/param"
	"github.com/govblock/daoengine/period"
)

// HeightLookup resolves the confirmation height and issued amount of a
// compensation-issuance tx, needed to compute merit age and weight.
// ledger.State satisfies this.
type HeightLookup interface {
	TxHeight(txid govblock.Uint256) (int32, bool)
	IssuanceAmount(txid govblock.Uint256) (uint64, bool)
}

// Engine is the Vote Tally Engine plus the Parameter Change Applier,
// sharing state because an accepted ChangeParam decision is
// only meaningful once the applier flushes it at the next cycle's first
// block.
type Engine struct {
	reg     *param.Registry
	store   *ballot.Store
	heights HeightLookup

	pendingParamChanges map[int32][]paramChange
	pendingIssuance     map[int32][]IssuanceDue
}

type paramChange struct {
	id    param.ID
	value int64
}

// IssuanceDue is the effect of tallying an accepted CompensationProposal:
// an amount issued at the first block of the next cycle as ISSUANCE
// outputs. Constructing that tx is a wallet/UTXO-construction concern, so
// this only delivers the due amount as data; an external issuance-tx
// builder consumes it.
type IssuanceDue struct {
	ProposalTxID govblock.Uint256
	Amount       int64
}

// PendingIssuanceAt reports, without consuming them, the compensation
// issuances scheduled to land at height. The Block Parser needs this
// ahead of IssuanceDueAt's consuming read: it must recognize the approved
// payout tx while classifying that height's block, before the block (and
// whatever due issuances it pays out) is committed and logged.
func (e *Engine) PendingIssuanceAt(height int32) []IssuanceDue {
	return e.pendingIssuance[height]
}

func NewEngine(reg *param.Registry, store *ballot.Store, heights HeightLookup) *Engine {
	return &Engine{
		reg:                 reg,
		store:               store,
		heights:             heights,
		pendingParamChanges: make(map[int32][]paramChange),
		pendingIssuance:     make(map[int32][]IssuanceDue),
	}
}

// RunCycle executes the Vote Tally Engine for the cycle, to be called once
// at the first block of that cycle's RESULT phase. It returns
// the per-proposal decisions, in the deterministic proposal-tx-id order
// the engine's tie-break rule requires, and schedules any accepted
// ChangeParam/CompensationProposal effects for the next cycle's first
// block.
func (e *Engine) RunCycle(cycle *period.Cycle) ([]Decision, error) {
	voteRevealFirst, _ := cycle.FirstBlockOf(period.VoteReveal)
	voteRevealLast, _ := cycle.LastBlockOf(period.VoteReveal)
	blindVoteFirst, _ := cycle.FirstBlockOf(period.BlindVote)
	blindVoteLast, _ := cycle.LastBlockOf(period.BlindVote)

	voters, err := e.collectAndDecrypt(blindVoteFirst, blindVoteLast, voteRevealFirst, voteRevealLast, cycle.FirstBlock)
	if err != nil {
		return nil, err
	}

	proposals := e.store.ProposalsInCycle(cycle.Index)
	decisions := make([]Decision, 0, len(proposals))
	nextFirst := cycle.LastBlock() + 1

	for _, p := range proposals {
		var accept, reject, totalStake uint64
		for _, v := range voters {
			vote := voteFor(v.ballots, p.TxID)
			switch vote {
			case ballot.Accept:
				accept += v.effective
				totalStake += v.stake
			case ballot.Reject:
				reject += v.effective
				totalStake += v.stake
			}
		}

		outcome := decide(e.reg, p, accept, reject, totalStake, cycle.FirstBlock)
		decisions = append(decisions, Decision{
			Proposal:     p,
			Outcome:      outcome,
			AcceptWeight: accept,
			RejectWeight: reject,
			TotalStake:   totalStake,
		})

		if outcome != Accepted {
			continue
		}
		switch p.Kind {
		case ballot.ChangeParamProposal:
			e.pendingParamChanges[nextFirst] = append(e.pendingParamChanges[nextFirst], paramChange{id: param.ID(p.ParamID), value: p.ParamValue})
		case ballot.CompensationProposal:
			e.pendingIssuance[nextFirst] = append(e.pendingIssuance[nextFirst], IssuanceDue{ProposalTxID: p.TxID, Amount: p.RequestedAmount})
		}
	}

	return decisions, nil
}

func voteFor(entries []ballot.BallotEntry, proposalTxID govblock.Uint256) ballot.Vote {
	for _, e := range entries {
		if e.ProposalTxID == proposalTxID {
			return e.Vote
		}
	}
	return ballot.Ignore
}

// decide applies the quorum/threshold decision rule, with
// integer math rounding toward zero for the accept-ratio comparison.
func decide(reg *param.Registry, p *ballot.Proposal, accept, reject, totalStake uint64, atHeight int32) Outcome {
	quorum := reg.Value(quorumParam(p.Kind), atHeight)
	if int64(totalStake) < quorum {
		return RejectedQuorum
	}
	threshold := reg.Value(thresholdParam(p.Kind), atHeight)
	denom := accept + reject
	if denom == 0 {
		return RejectedThreshold
	}
	ratio := int64(accept) * 10000 / int64(denom)
	if ratio >= threshold {
		return Accepted
	}
	return RejectedThreshold
}

// collectAndDecrypt pairs each BlindVote
// cast within [blindVoteFirst,blindVoteLast] with the reveal that targets
// it, accept only a reveal confirmed within [revealFirst,revealLast] whose
// commitment matches, decrypt, and merge merit into one effective weight
// per voter.
func (e *Engine) collectAndDecrypt(blindVoteFirst, blindVoteLast, revealFirst, revealLast, cycleFirstBlock int32) ([]voterWeights, error) {
	blindVotes := e.store.BlindVotesInRange(blindVoteFirst, blindVoteLast)

	out := make([]voterWeights, 0, len(blindVotes))
	for _, bv := range blindVotes {
		reveal, ok := e.store.RevealFor(bv.TxID)
		if !ok {
			continue // no reveal: disqualified
		}
		if reveal.Height < revealFirst || reveal.Height > revealLast {
			continue // reveal outside VOTE_REVEAL phase of this cycle
		}
		if err := ballot.VerifyCommitment(bv.EncBallots, bv.Commitment); err != nil {
			continue // commitment mismatch: pair discarded
		}

		plainBallots, err := ballot.DecryptAES128CBC(bv.EncBallots, reveal.Key)
		if err != nil {
			continue // decryption failed: vote disqualified
		}
		entries, err := ballot.DeserializeBallots(plainBallots)
		if err != nil {
			continue
		}

		plainMerit, err := ballot.DecryptAES128CBC(bv.EncMerit, reveal.Key)
		if err != nil {
			continue
		}
		meritEntries, err := ballot.DeserializeMerit(plainMerit)
		if err != nil {
			continue
		}

		effective := bv.Stake + e.mergeMerit(meritEntries, cycleFirstBlock)
		out = append(out, voterWeights{
			blindVoteTxID: bv.TxID,
			stake:         bv.Stake,
			effective:     effective,
			ballots:       entries,
		})
	}

	sort.Slice(out, func(i, j int) bool { return lessUint256(out[i].blindVoteTxID, out[j].blindVoteTxID) })
	return out, nil
}

// mergeMerit deduplicates merit entries by issuance-tx-id, keeping the
// earliest-height (highest-age) entry for each, and sums the decayed
// contribution of each.
func (e *Engine) mergeMerit(entries []ballot.MeritEntry, cycleFirstBlock int32) uint64 {
	bestHeight := make(map[govblock.Uint256]int32)
	for _, m := range entries {
		h, ok := e.heights.TxHeight(m.IssuanceTxID)
		if !ok {
			continue
		}
		if cur, seen := bestHeight[m.IssuanceTxID]; !seen || h < cur {
			bestHeight[m.IssuanceTxID] = h
		}
	}
	var sum uint64
	for txid, h := range bestHeight {
		amount, ok := e.heights.IssuanceAmount(txid)
		if !ok {
			continue // unresolvable issuance: contributes no weight, not an error
		}
		sum += decayWeight(amount, h, cycleFirstBlock)
	}
	return sum
}

func lessUint256(a, b govblock.Uint256) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

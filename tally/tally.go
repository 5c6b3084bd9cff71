// Package tally implements the Vote Tally Engine and the
// Parameter Change Applier: per-cycle decryption of blind
// votes, merit-weighted stake tallying against quorum/threshold, and
// application of accepted ChangeParam decisions at the next cycle's first
// block.
package tally

import (
	"github.com/govblock/daoengine/ballot"
	"github.com/govblock/daoengine/govblock"
	"github.com/govblock/daoengine/param"
)

// HalfLifeBlocks is the merit decay half-life: with decayWeight's
// 1 - age/HALF_LIFE*2, an issuance's contributed weight decays linearly
// from full at age 0 to zero at age HalfLifeBlocks/2.
const HalfLifeBlocks = 50_000

// Outcome is a proposal's final tally decision for one cycle.
type Outcome int

const (
	RejectedQuorum Outcome = iota
	RejectedThreshold
	Accepted
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "ACCEPTED"
	case RejectedThreshold:
		return "REJECTED_THRESHOLD"
	default:
		return "REJECTED_QUORUM"
	}
}

// Decision is one proposal's tally result.
type Decision struct {
	Proposal     *ballot.Proposal
	Outcome      Outcome
	AcceptWeight uint64
	RejectWeight uint64
	TotalStake   uint64
}

// quorumParam and thresholdParam map a proposal kind to the Param ids
// governing its per-proposal-type quorum and threshold.
func quorumParam(k ballot.ProposalKind) param.ID {
	switch k {
	case ballot.CompensationProposal:
		return param.QuorumCompensation
	case ballot.ChangeParamProposal:
		return param.QuorumChangeParam
	case ballot.RemoveAssetProposal:
		return param.QuorumRemoveAsset
	case ballot.BurnBondProposal:
		return param.QuorumBondedRole
	default:
		return param.QuorumGeneric
	}
}

func thresholdParam(k ballot.ProposalKind) param.ID {
	switch k {
	case ballot.CompensationProposal:
		return param.ThresholdCompensation
	case ballot.ChangeParamProposal:
		return param.ThresholdChangeParam
	case ballot.RemoveAssetProposal:
		return param.ThresholdRemoveAsset
	case ballot.BurnBondProposal:
		return param.ThresholdBondedRole
	default:
		return param.ThresholdGeneric
	}
}

// decayWeight applies the engine's linear merit decay:
// max(0, 1 - age/HALF_LIFE*2), evaluated at the cycle's first block.
func decayWeight(meritValue uint64, issuanceHeight, cycleFirstBlock int32) uint64 {
	age := int64(cycleFirstBlock - issuanceHeight)
	if age < 0 {
		age = 0
	}
	// decay = max(0, 1 - age/HALF_LIFE*2) computed in fixed point with a
	// 1e6 scale to avoid floating point in consensus-critical code.
	const scale = 1_000_000
	decayScaled := scale - (age*2*scale)/int64(HalfLifeBlocks)
	if decayScaled <= 0 {
		return 0
	}
	if decayScaled > scale {
		decayScaled = scale
	}
	return uint64(int64(meritValue)*decayScaled) / scale
}

// voterWeights is one decrypted blind vote's per-proposal contribution:
// stake applies to every proposal the voter ballot-listed, merit is summed
// and decayed once per voter before being added to each proposal's
// accept/reject side.
type voterWeights struct {
	blindVoteTxID govblock.Uint256
	stake         uint64
	effective     uint64 // stake + decayed merit
	ballots       []ballot.BallotEntry
}

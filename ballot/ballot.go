// Package ballot implements the Ballot/Blind-Vote Store:
// proposals, encrypted blind votes, and their reveals, joined by tx-id.
package ballot

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/govblock/daoengine/govblock"
	"github.com/govblock/daoengine/period"
)

// Vote is a voter-local ballot entry's disposition toward one proposal.
type Vote int

const (
	Ignore Vote = iota
	Accept
	Reject
)

func (v Vote) String() string {
	switch v {
	case Accept:
		return "ACCEPT"
	case Reject:
		return "REJECT"
	default:
		return "IGNORE"
	}
}

// ProposalKind distinguishes the Proposal variants.
type ProposalKind int

const (
	CompensationProposal ProposalKind = iota
	ChangeParamProposal
	BurnBondProposal
	RemoveAssetProposal
	GenericProposal
)

func (k ProposalKind) String() string {
	switch k {
	case CompensationProposal:
		return "COMPENSATION_REQUEST"
	case ChangeParamProposal:
		return "CHANGE_PARAM"
	case BurnBondProposal:
		return "BURN_BOND"
	case RemoveAssetProposal:
		return "REMOVE_ASSET"
	default:
		return "GENERIC"
	}
}

// Proposal carries the common fields every proposal variant has, plus
// kind-specific payloads used by the per-kind validation rules.
type Proposal struct {
	TxID        govblock.Uint256
	CycleIndex  uint32
	Kind        ProposalKind
	Name        string
	Title       string
	Description string
	Link        string

	// ChangeParamProposal payload.
	ParamID    string
	ParamValue int64

	// CompensationProposal payload.
	RequestedAmount int64

	// RemoveAssetProposal payload.
	AssetTicker string
}

// ErrValidation is the engine's ValidationFailed(reason, context) kind,
// surfaced to the submitting client with no state change.
type ErrValidation struct {
	Reason  string
	Context string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("ballot: validation failed: %s (%s)", e.Reason, e.Context)
}

// Validate applies the syntactic-validation predicate proposals are held
// to: non-empty name/title, a well-formed link URL when present, and a
// bounded description.
func (p *Proposal) Validate(maxDescLen int) error {
	if p.Name == "" {
		return &ErrValidation{Reason: "empty name", Context: p.TxID.String()}
	}
	if p.Title == "" {
		return &ErrValidation{Reason: "empty title", Context: p.TxID.String()}
	}
	if len(p.Description) > maxDescLen {
		return &ErrValidation{Reason: "description too long", Context: p.TxID.String()}
	}
	if p.Link != "" {
		if _, err := url.ParseRequestURI(p.Link); err != nil {
			return &ErrValidation{Reason: "malformed link", Context: p.Link}
		}
	}
	return nil
}

// Ballot is a voter-local pair of proposal reference and optional vote.
// It is the only legitimately mutable state in the model: SetVote is its
// single mutator entry, gated by phase.
type Ballot struct {
	ProposalTxID govblock.Uint256
	Vote         Vote
}

// ErrPhaseLocked is returned by SetVote outside the PROPOSAL phase.
var ErrPhaseLocked = errors.New("ballot: vote mutation only allowed during PROPOSAL phase")

// BlindVote is the on-chain commitment a voter submits: stake,
// encrypted ballot and merit lists, and the commitment hash they must hash
// to once revealed.
type BlindVote struct {
	TxID       govblock.Uint256
	Height     int32
	Stake      uint64
	EncBallots []byte
	EncMerit   []byte
	Commitment [20]byte
}

// VoteReveal discloses the symmetric key used to encrypt a BlindVote's
// ballot list.
type VoteReveal struct {
	TxID          govblock.Uint256
	Height        int32
	BlindVoteTxID govblock.Uint256
	Key           [16]byte
	MeritDigest   [20]byte
}

// Store holds the three tx-id-keyed collections: proposals, blind votes,
// and vote reveals.
// It is not safe for concurrent use; mutated only by the block-ingest
// task.
type Store struct {
	proposals  map[govblock.Uint256]*Proposal
	blindVotes map[govblock.Uint256]*BlindVote
	reveals    map[govblock.Uint256]*VoteReveal // keyed by the reveal tx's own id
	ballots    map[govblock.Uint256]*Ballot     // keyed by proposal tx-id; voter-local model keeps one ballot per proposal here

	// revealsByBlindVote indexes VoteReveal by the BlindVote tx-id it
	// targets, enforcing the reveal-uniqueness invariant: first-by-height
	// wins, later ones are ignored.
	revealsByBlindVote map[govblock.Uint256]*VoteReveal
}

func NewStore() *Store {
	return &Store{
		proposals:          make(map[govblock.Uint256]*Proposal),
		blindVotes:         make(map[govblock.Uint256]*BlindVote),
		reveals:            make(map[govblock.Uint256]*VoteReveal),
		ballots:            make(map[govblock.Uint256]*Ballot),
		revealsByBlindVote: make(map[govblock.Uint256]*VoteReveal),
	}
}

// AddProposal records a confirmed PROPOSAL/COMPENSATION_REQUEST tx. It
// rejects a proposal that fails syntactic validation with ErrValidation,
// surfaced to the caller with no state change.
func (s *Store) AddProposal(p *Proposal, maxDescLen int) error {
	if err := p.Validate(maxDescLen); err != nil {
		return err
	}
	s.proposals[p.TxID] = p
	s.ballots[p.TxID] = &Ballot{ProposalTxID: p.TxID, Vote: Ignore}
	return nil
}

func (s *Store) Proposal(txid govblock.Uint256) (*Proposal, bool) {
	p, ok := s.proposals[txid]
	return p, ok
}

// AddBlindVote records a confirmed BLIND_VOTE tx.
func (s *Store) AddBlindVote(bv *BlindVote) {
	s.blindVotes[bv.TxID] = bv
}

// AddVoteReveal records a confirmed VOTE_REVEAL tx, enforcing reveal
// uniqueness: the first reveal (by height, i.e. by arrival order since
// callers must feed in height order) for a given BlindVote wins; later
// ones are silently ignored, not errors.
func (s *Store) AddVoteReveal(vr *VoteReveal) {
	if existing, ok := s.revealsByBlindVote[vr.BlindVoteTxID]; ok {
		if existing.Height <= vr.Height {
			return // first-by-height already recorded, ignore this one
		}
	}
	s.reveals[vr.TxID] = vr
	s.revealsByBlindVote[vr.BlindVoteTxID] = vr
}

func (s *Store) BlindVote(txid govblock.Uint256) (*BlindVote, bool) {
	bv, ok := s.blindVotes[txid]
	return bv, ok
}

// RevealFor returns the accepted VoteReveal for blindVoteTxID, if any.
func (s *Store) RevealFor(blindVoteTxID govblock.Uint256) (*VoteReveal, bool) {
	vr, ok := s.revealsByBlindVote[blindVoteTxID]
	return vr, ok
}

// SetVote is the single mutator of Ballot.Vote, gated by
// period.Service.IsInPhaseButNotLast(Proposal, ...). Outside the proposal
// phase it fails ErrPhaseLocked.
func (s *Store) SetVote(proposalTxID govblock.Uint256, v Vote, currentHeight int32, periods *period.Service) error {
	if !periods.IsInPhaseButNotLast(period.Proposal, currentHeight) {
		// The last block of PROPOSAL is still PROPOSAL phase for reading,
		// but mutation is locked there too: only IsInPhaseButNotLast
		// admits a write.
		return ErrPhaseLocked
	}
	b, ok := s.ballots[proposalTxID]
	if !ok {
		return fmt.Errorf("ballot: no ballot for proposal %s", proposalTxID)
	}
	b.Vote = v
	return nil
}

// BallotsValidAndConfirmed returns proposals whose tx exists, lies in the
// cycle currently active at currentHeight, and passed admission validation.
func (s *Store) BallotsValidAndConfirmed(currentHeight int32, periods *period.Service) []*Proposal {
	cur, ok := periods.CycleOf(currentHeight)
	if !ok {
		return nil
	}
	var out []*Proposal
	for _, p := range s.proposals {
		if p.CycleIndex == cur.Index {
			out = append(out, p)
		}
	}
	sortProposalsByTxID(out)
	return out
}

// BallotsClosed returns proposals belonging to a cycle strictly before the
// one containing currentHeight.
func (s *Store) BallotsClosed(currentHeight int32, periods *period.Service) []*Proposal {
	cur, ok := periods.CycleOf(currentHeight)
	if !ok {
		return nil
	}
	var out []*Proposal
	for _, p := range s.proposals {
		if p.CycleIndex < cur.Index {
			out = append(out, p)
		}
	}
	sortProposalsByTxID(out)
	return out
}

// ProposalsInCycle returns every proposal belonging to cycle idx, ordered
// ascending by proposal tx-id, the deterministic tie-break tally
// iteration requires.
func (s *Store) ProposalsInCycle(idx uint32) []*Proposal {
	var out []*Proposal
	for _, p := range s.proposals {
		if p.CycleIndex == idx {
			out = append(out, p)
		}
	}
	sortProposalsByTxID(out)
	return out
}

// BlindVotesInRange returns every BlindVote with height in [first,last],
// ordered ascending by tx-id for a deterministic tie-break.
func (s *Store) BlindVotesInRange(first, last int32) []*BlindVote {
	var out []*BlindVote
	for _, bv := range s.blindVotes {
		if bv.Height >= first && bv.Height <= last {
			out = append(out, bv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lessUint256(out[i].TxID, out[j].TxID)
	})
	return out
}

func sortProposalsByTxID(ps []*Proposal) {
	sort.Slice(ps, func(i, j int) bool { return lessUint256(ps[i].TxID, ps[j].TxID) })
}

func lessUint256(a, b govblock.Uint256) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

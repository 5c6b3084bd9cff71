package main

import (
	"sync"

	"github.com/govblock/daoengine/ballot"
)

// ProposalBody is the off-chain proposal payload a PayloadSource resolves
// from a PROPOSAL/COMPENSATION_REQUEST op-return's commitment hash. The
// op-return itself carries only the 20-byte hash; the descriptive fields
// below are never written to the base chain.
type ProposalBody struct {
	Kind            ballot.ProposalKind
	Name            string
	Title           string
	Description     string
	Link            string
	ParamID         string
	ParamValue      int64
	RequestedAmount int64
	AssetTicker     string
}

// PayloadSource supplies the data that travels outside the base chain:
// full proposal bodies and blind-vote ciphertexts, both referenced
// on-chain only by a commitment hash. A real deployment resolves these
// against a p2p gossip network; that network is out of scope here, so
// this is the seam a gossip client plugs into.
type PayloadSource interface {
	Proposal(hash [20]byte) (ProposalBody, bool)
	BlindVotePayload(commitment [20]byte) (encBallots, encMerit []byte, ok bool)
}

// memoryPayloadSource is an in-process stand-in for the gossip network:
// payloads must be pushed via Offer before a matching on-chain commitment
// is processed, or the commitment is dropped as not-yet-seen. Good enough
// for a single-process deployment where the wallet side offering these
// payloads runs in the same program; a real multi-peer deployment needs a
// client that listens on the actual gossip transport instead.
type memoryPayloadSource struct {
	mu        sync.Mutex
	proposals map[[20]byte]ProposalBody
	votes     map[[20]byte][2][]byte
}

func newMemoryPayloadSource() *memoryPayloadSource {
	return &memoryPayloadSource{
		proposals: make(map[[20]byte]ProposalBody),
		votes:     make(map[[20]byte][2][]byte),
	}
}

func (m *memoryPayloadSource) OfferProposal(hash [20]byte, body ProposalBody) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[hash] = body
}

func (m *memoryPayloadSource) OfferBlindVote(commitment [20]byte, encBallots, encMerit []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[commitment] = [2][]byte{encBallots, encMerit}
}

func (m *memoryPayloadSource) Proposal(hash [20]byte) (ProposalBody, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.proposals[hash]
	return b, ok
}

func (m *memoryPayloadSource) BlindVotePayload(commitment [20]byte) ([]byte, []byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[commitment]
	if !ok {
		return nil, nil, false
	}
	return v[0], v[1], true
}

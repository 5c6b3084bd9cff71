// Package events implements the in-process observer dispatch: a single
// typed event with variants, delivered synchronously and inline, in
// registration order, to every subscriber.
package events

import (
	"github.com/govblock/daoengine/ledger"
	"github.com/govblock/daoengine/param"
)

// Kind tags which variant of Event is populated.
type Kind int

const (
	NewBlockHeight Kind = iota
	EmptyBlockAdded
	ParseBlockComplete
	PhaseChanged
	CycleComplete
)

func (k Kind) String() string {
	switch k {
	case NewBlockHeight:
		return "NewBlockHeight"
	case EmptyBlockAdded:
		return "EmptyBlockAdded"
	case ParseBlockComplete:
		return "ParseBlockComplete"
	case PhaseChanged:
		return "PhaseChanged"
	case CycleComplete:
		return "CycleComplete"
	default:
		return "Unknown"
	}
}

// CycleResult carries the outcome summary a CycleComplete event announces.
// cmd/daoengine fills this in from the Vote Tally Engine's decisions for
// listeners such as asset-removal or bond handling. The Parameter Change
// Applier (tally.Engine.ApplyPending) does not read it; it flushes the
// ChangeParam decisions the engine itself kept from RunCycle.
type CycleResult struct {
	CycleIndex uint32
	Decisions  []ProposalDecision
}

// ProposalDecision is one proposal's final tally outcome for a cycle.
type ProposalDecision struct {
	ProposalTxID string // hex, kept string to avoid an import cycle on ledger.Tx
	Outcome      string // ACCEPTED, REJECTED_QUORUM, REJECTED_THRESHOLD
}

// Event is the single typed event dispatched through the bus, with only
// the fields matching Kind populated.
type Event struct {
	Kind Kind

	Height int32         // NewBlockHeight, PhaseChanged
	Block  *ledger.Block // EmptyBlockAdded, ParseBlockComplete
	Phase  string        // PhaseChanged
	Param  param.ID      // unused placeholder kept for symmetry with other param-facing events
	Result *CycleResult  // CycleComplete
}

// Listener receives events synchronously on the block-ingest task. A
// listener must not mutate the ledger; it may only enqueue
// work for after the current block finishes.
type Listener func(Event)

// Bus is a single-subscription-list dispatcher. It is not safe for
// concurrent Subscribe/Publish; the whole core is single-threaded
// cooperative.
type Bus struct {
	listeners []Listener
}

func NewBus() *Bus { return &Bus{} }

// Subscribe registers a listener, invoked for every subsequent Publish in
// registration order.
func (b *Bus) Subscribe(l Listener) {
	b.listeners = append(b.listeners, l)
}

// Publish dispatches ev to every registered listener, in order, inline.
func (b *Bus) Publish(ev Event) {
	for _, l := range b.listeners {
		l(ev)
	}
}

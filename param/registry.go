// Package param implements the governance Param Registry: named
// variables with a persistence-stable identifier, a default value, and a
// height-indexed override list appended as CHANGE_PARAM proposals succeed.
package param

import (
	"fmt"
	"sort"
)

// ID is the persistence-stable identifier of a governance parameter. Never
// reuse or rename an ID once it has shipped; the identifier, not the
// default, is what persists.
type ID string

// Well-known parameter identifiers, covering trade fees, proposal/vote
// fees, quorums, thresholds, phase durations, and lock-time bounds.
const (
	MakerFeeColored ID = "MAKER_FEE_COLORED"
	MakerFeeBTC     ID = "MAKER_FEE_BTC"
	TakerFeeColored ID = "TAKER_FEE_COLORED"
	TakerFeeBTC     ID = "TAKER_FEE_BTC"

	ProposalFee  ID = "PROPOSAL_FEE"
	BlindVoteFee ID = "BLIND_VOTE_FEE"

	QuorumCompensation ID = "QUORUM_COMP_REQUEST"
	QuorumChangeParam  ID = "QUORUM_CHANGE_PARAM"
	QuorumRemoveAsset  ID = "QUORUM_REMOVE_ASSET"
	QuorumBondedRole   ID = "QUORUM_BONDED_ROLE"
	QuorumGeneric      ID = "QUORUM_GENERIC"

	ThresholdCompensation ID = "THRESHOLD_COMP_REQUEST"
	ThresholdChangeParam  ID = "THRESHOLD_CHANGE_PARAM"
	ThresholdRemoveAsset  ID = "THRESHOLD_REMOVE_ASSET"
	ThresholdBondedRole   ID = "THRESHOLD_BONDED_ROLE"
	ThresholdGeneric      ID = "THRESHOLD_GENERIC"

	PhaseProposalBlocks   ID = "PHASE_PROPOSAL_BLOCKS"
	PhaseBreak1Blocks     ID = "PHASE_BREAK1_BLOCKS"
	PhaseBlindVoteBlocks  ID = "PHASE_BLIND_VOTE_BLOCKS"
	PhaseBreak2Blocks     ID = "PHASE_BREAK2_BLOCKS"
	PhaseVoteRevealBlocks ID = "PHASE_VOTE_REVEAL_BLOCKS"
	PhaseBreak3Blocks     ID = "PHASE_BREAK3_BLOCKS"
	PhaseResultBlocks     ID = "PHASE_RESULT_BLOCKS"
	PhaseBreak4Blocks     ID = "PHASE_BREAK4_BLOCKS"

	LockTimeMin ID = "LOCK_TIME_MIN"
	LockTimeMax ID = "LOCK_TIME_MAX"

	CompensationRequestMaxAmount ID = "COMPENSATION_REQUEST_MAX_AMOUNT"
)

// Undefined is the null-object sentinel value returned for lookups against
// an ID the registry does not recognize, rather than panicking or requiring
// callers to unwrap an error at every call site.
const Undefined int64 = 0

// override is one height-indexed change to a parameter's value.
type override struct {
	height int32
	value  int64
}

type entry struct {
	def       int64
	overrides []override // strictly increasing by height
}

// Registry holds the full parameter set and their override history. It is
// not safe for concurrent use; callers mutate it only from the single
// block-ingest task.
type Registry struct {
	entries map[ID]*entry
	order   []ID // enumeration order, insertion order
}

// NewRegistry builds a registry from the default values. Defaults are fixed
// once the genesis block is processed; appending more
// defaults after that point is a programming error, not a runtime one, so
// this constructor is the only place defaults are ever set.
func NewRegistry(defaults map[ID]int64) *Registry {
	r := &Registry{entries: make(map[ID]*entry, len(defaults))}
	// deterministic insertion order regardless of map iteration order
	ids := make([]ID, 0, len(defaults))
	for id := range defaults {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r.entries[id] = &entry{def: defaults[id]}
		r.order = append(r.order, id)
	}
	return r
}

// DefaultRegistry returns a registry seeded with the stock parameter set
// used by the reference deployment; cycle/tests commonly start from this
// and append scenario-specific overrides.
func DefaultRegistry() *Registry {
	return NewRegistry(map[ID]int64{
		MakerFeeColored: 5,
		MakerFeeBTC:     10,
		TakerFeeColored: 5,
		TakerFeeBTC:     10,

		ProposalFee:  100,
		BlindVoteFee: 200,

		QuorumCompensation: 100_000,
		QuorumChangeParam:  100_000,
		QuorumRemoveAsset:  100_000,
		QuorumBondedRole:   100_000,
		QuorumGeneric:      100_000,

		ThresholdCompensation: 5000, // 50.00%
		ThresholdChangeParam:  5000,
		ThresholdRemoveAsset:  5000,
		ThresholdBondedRole:   5000,
		ThresholdGeneric:      5000,

		PhaseProposalBlocks:   3,
		PhaseBreak1Blocks:     1,
		PhaseBlindVoteBlocks:  3,
		PhaseBreak2Blocks:     1,
		PhaseVoteRevealBlocks: 3,
		PhaseBreak3Blocks:     1,
		PhaseResultBlocks:     1,
		PhaseBreak4Blocks:     1,

		LockTimeMin: 0,
		LockTimeMax: 100_000,

		CompensationRequestMaxAmount: 1_000_000,
	})
}

// ErrStaleOverride is returned by AppendOverride when atHeight does not
// strictly exceed the id's last override height, which would violate the
// monotone-height invariant. It is fatal to the caller: a
// regression here means the cycle/applier machinery has a bug.
type ErrStaleOverride struct {
	ID         ID
	AtHeight   int32
	LastHeight int32
}

func (e *ErrStaleOverride) Error() string {
	return fmt.Sprintf("param: stale override for %s at height %d, last override is at height %d", e.ID, e.AtHeight, e.LastHeight)
}

// ErrUnknownParam is returned when looking up or overriding an ID that was
// never registered with a default.
type ErrUnknownParam struct{ ID ID }

func (e *ErrUnknownParam) Error() string { return fmt.Sprintf("param: unknown id %q", e.ID) }

// Value returns the most recent override at or before atHeight, or the
// default if none exists. Unknown ids return Undefined rather than an
// error, matching the engine's UNDEFINED sentinel / null-object pattern.
func (r *Registry) Value(id ID, atHeight int32) int64 {
	e, ok := r.entries[id]
	if !ok {
		return Undefined
	}
	// overrides are sorted ascending by height; binary search for the
	// last one at or before atHeight.
	lo, hi := 0, len(e.overrides)
	for lo < hi {
		mid := (lo + hi) / 2
		if e.overrides[mid].height <= atHeight {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return e.def
	}
	return e.overrides[lo-1].value
}

// AppendOverride records a new value for id effective at atHeight. It fails
// ErrStaleOverride unless atHeight is strictly greater than the id's last
// override height (or there is no prior override at all).
func (r *Registry) AppendOverride(id ID, atHeight int32, value int64) error {
	e, ok := r.entries[id]
	if !ok {
		return &ErrUnknownParam{ID: id}
	}
	if n := len(e.overrides); n > 0 {
		last := e.overrides[n-1].height
		if atHeight <= last {
			return &ErrStaleOverride{ID: id, AtHeight: atHeight, LastHeight: last}
		}
	}
	e.overrides = append(e.overrides, override{height: atHeight, value: value})
	return nil
}

// Default returns the never-changing default of id.
func (r *Registry) Default(id ID) (int64, bool) {
	e, ok := r.entries[id]
	if !ok {
		return Undefined, false
	}
	return e.def, true
}

// Enumerate lists every registered (id, default) pair in a deterministic
// order suitable for snapshotting.
func (r *Registry) Enumerate() []struct {
	ID      ID
	Default int64
} {
	out := make([]struct {
		ID      ID
		Default int64
	}, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, struct {
			ID      ID
			Default int64
		}{ID: id, Default: r.entries[id].def})
	}
	return out
}

// Overrides returns a copy of id's (height, value) history, ascending by
// height, for snapshotting.
func (r *Registry) Overrides(id ID) []struct {
	Height int32
	Value  int64
} {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	out := make([]struct {
		Height int32
		Value  int64
	}, len(e.overrides))
	for i, o := range e.overrides {
		out[i] = struct {
			Height int32
			Value  int64
		}{Height: o.height, Value: o.value}
	}
	return out
}

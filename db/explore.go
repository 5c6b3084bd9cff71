package db

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	// registers the "postgres" driver for both sql.Open (postgres.go) and
	// sqlx.Connect (this file)
	_ "github.com/lib/pq"
)

// Config names the single thing the read side needs to connect.
type Config struct {
	ConnectString string
}

// Reader is the governance read side: sqlx-backed struct-scanning
// queries over the tables PGWriter maintains, used by external wallet/UI
// collaborators that want the current param set or ballot listing without
// replaying the chain themselves.
type Reader struct {
	db *sqlx.DB
}

func NewReader(cfg Config) (*Reader, error) {
	conn, err := sqlx.Connect("postgres", cfg.ConnectString)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return &Reader{db: conn}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

// EnumerateParamOverrides returns every override for id, ascending by
// height.
func (r *Reader) EnumerateParamOverrides(id string) ([]ParamOverrideRec, error) {
	var out []ParamOverrideRec
	err := r.db.Select(&out, `SELECT id, height, value FROM param_overrides WHERE id = $1 ORDER BY height`, id)
	return out, err
}

// ParamValueAt mirrors param.Registry.Value against the persisted
// snapshot: the most recent override at or before atHeight.
func (r *Reader) ParamValueAt(id string, atHeight int32) (int64, bool, error) {
	var value int64
	err := r.db.Get(&value, `
SELECT value FROM param_overrides
 WHERE id = $1 AND height <= $2
 ORDER BY height DESC LIMIT 1`, id, atHeight)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// BallotsInCycle lists every confirmed proposal in cycleIndex, the
// read-side counterpart of ballot.Store.BallotsValidAndConfirmed, ordered
// ascending by tx-id to match the engine's deterministic tie-break.
func (r *Reader) BallotsInCycle(cycleIndex int32) ([]ProposalRec, error) {
	var out []ProposalRec
	err := r.db.Select(&out, `
SELECT txid, cycle_index, kind, name, title, description, link, param_id, param_value, amount, asset_ticker
  FROM proposals
 WHERE cycle_index = $1
 ORDER BY txid`, cycleIndex)
	return out, err
}

// BlindVotesInRange lists confirmed blind votes with height in
// [first,last], the read-side counterpart of ballot.Store.BlindVotesInRange.
func (r *Reader) BlindVotesInRange(first, last int32) ([]BlindVoteRec, error) {
	var out []BlindVoteRec
	err := r.db.Select(&out, `
SELECT txid, height, stake, commitment
  FROM blind_votes
 WHERE height BETWEEN $1 AND $2
 ORDER BY txid`, first, last)
	return out, err
}

// CycleResults lists every proposal decision recorded for cycleIndex.
func (r *Reader) CycleResults(cycleIndex int32) ([]CycleResultRec, error) {
	var out []CycleResultRec
	err := r.db.Select(&out, `
SELECT cycle_index, proposal_txid, outcome, accept_weight, reject_weight, total_stake
  FROM cycle_results
 WHERE cycle_index = $1
 ORDER BY proposal_txid`, cycleIndex)
	return out, err
}

// MaxHeight returns the height of the most recently committed block.
func (r *Reader) MaxHeight() (int32, error) {
	var height int32
	err := r.db.Get(&height, `SELECT COALESCE(MAX(height), -1) FROM blocks`)
	return height, err
}

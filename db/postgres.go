package db

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Explanation of how we handle integers: most overlay quantities are
// uint32/uint64. Postgres has no unsigned integer type, so values are
// cast to their signed counterpart and read back the same way; this
// matches the usual bitcoin-indexer convention of trusting the bit
// pattern rather than the sign.

// PGWriter is the Postgres snapshot store: it bulk-inserts the append-only
// block/tx/txout chain via pq.CopyIn the way a bulk chain importer does,
// and maintains the governance tables (params, proposals, blind votes,
// vote reveals, cycle results) the overlay adds on top.
type PGWriter struct {
	db    *sql.DB
	cache *txIdCache
}

// NewPGWriter opens the connection, creates the schema if absent, and
// creates an empty tx-id cache that WriteBlock fills with each written
// tx's row id and output count.
func NewPGWriter(connstr string, cacheSize int) (*PGWriter, error) {
	sqldb, err := sql.Open("postgres", connstr)
	if err != nil {
		return nil, err
	}
	if err := createPgcrypto(sqldb); err != nil {
		return nil, err
	}
	if err := createTables(sqldb); err != nil {
		return nil, err
	}
	return &PGWriter{db: sqldb, cache: newTxIdCache(cacheSize)}, nil
}

func (w *PGWriter) Close() error { return w.db.Close() }

// WriteBlock persists one parsed block, its txs, and its txouts in a
// single transaction via pq.CopyIn, the same bulk-COPY technique applied
// at the (much smaller) per-block scale a governance overlay actually
// sees.
func (w *PGWriter) WriteBlock(b *BlockRec) error {
	txn, err := w.db.Begin()
	if err != nil {
		return err
	}

	blockStmt, err := txn.Prepare(pq.CopyIn("blocks", "height", "hash", "prevhash", "time"))
	if err != nil {
		txn.Rollback()
		return err
	}
	if _, err := blockStmt.Exec(b.Height, b.Hash[:], b.PrevHash[:], int64(b.Time)); err != nil {
		txn.Rollback()
		return err
	}
	if _, err := blockStmt.Exec(); err != nil {
		txn.Rollback()
		return err
	}
	if err := blockStmt.Close(); err != nil {
		txn.Rollback()
		return err
	}

	var blockId int64
	if err := txn.QueryRow("SELECT id FROM blocks WHERE height = $1", b.Height).Scan(&blockId); err != nil {
		txn.Rollback()
		return err
	}

	txStmt, err := txn.Prepare(pq.CopyIn("txs", "block_id", "n", "txid", "type"))
	if err != nil {
		txn.Rollback()
		return err
	}
	for _, t := range b.Txs {
		if _, err := txStmt.Exec(blockId, t.N, t.TxID[:], t.Type); err != nil {
			txn.Rollback()
			return err
		}
	}
	if _, err := txStmt.Exec(); err != nil {
		txn.Rollback()
		return err
	}
	if err := txStmt.Close(); err != nil {
		txn.Rollback()
		return err
	}

	for _, t := range b.Txs {
		var txId int64
		if err := txn.QueryRow("SELECT id FROM txs WHERE block_id = $1 AND n = $2", blockId, t.N).Scan(&txId); err != nil {
			txn.Rollback()
			return err
		}
		w.cache.add(t.TxID, txId, len(t.Outs))

		outStmt, err := txn.Prepare(pq.CopyIn("txouts", "tx_id", "n", "value", "type", "addr", "spent"))
		if err != nil {
			txn.Rollback()
			return err
		}
		for _, o := range t.Outs {
			if _, err := outStmt.Exec(txId, int32(o.N), int64(o.Value), o.Type, o.Addr, o.Spent); err != nil {
				txn.Rollback()
				return err
			}
		}
		if _, err := outStmt.Exec(); err != nil {
			txn.Rollback()
			return err
		}
		if err := outStmt.Close(); err != nil {
			txn.Rollback()
			return err
		}
	}

	return txn.Commit()
}

// WriteParamOverride persists one Param Registry override; failures here
// are fatal to the caller the same way a stale AppendOverride is (the
// registry and its snapshot must never diverge).
func (w *PGWriter) WriteParamOverride(id string, height int32, value int64) error {
	_, err := w.db.Exec(`INSERT INTO param_overrides (id, height, value) VALUES ($1, $2, $3)`, id, height, value)
	return err
}

// WriteProposal persists one confirmed proposal.
func (w *PGWriter) WriteProposal(p *ProposalRec) error {
	_, err := w.db.Exec(`
INSERT INTO proposals (txid, cycle_index, kind, name, title, description, link, param_id, param_value, amount, asset_ticker)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.TxID, p.CycleIndex, p.Kind, p.Name, p.Title, p.Description, p.Link, p.ParamID, p.ParamValue, p.Amount, p.AssetTicker)
	return err
}

// WriteBlindVote persists one confirmed blind-vote tx.
func (w *PGWriter) WriteBlindVote(bv *BlindVoteRec) error {
	_, err := w.db.Exec(`
INSERT INTO blind_votes (txid, height, stake, commitment) VALUES ($1, $2, $3, $4)`,
		bv.TxID, bv.Height, bv.Stake, bv.Commitment)
	return err
}

// WriteVoteReveal persists one confirmed vote-reveal tx.
func (w *PGWriter) WriteVoteReveal(vr *VoteRevealRec) error {
	_, err := w.db.Exec(`
INSERT INTO vote_reveals (txid, height, blind_vote_txid) VALUES ($1, $2, $3)`,
		vr.TxID, vr.Height, vr.BlindVoteTxID)
	return err
}

// WriteCycleResult persists one proposal's tally outcome.
func (w *PGWriter) WriteCycleResult(r *CycleResultRec) error {
	_, err := w.db.Exec(`
INSERT INTO cycle_results (cycle_index, proposal_txid, outcome, accept_weight, reject_weight, total_stake)
VALUES ($1, $2, $3, $4, $5, $6)`,
		r.CycleIndex, r.ProposalTxID, r.Outcome, r.AcceptWeight, r.RejectWeight, r.TotalStake)
	return err
}

func createPgcrypto(db *sql.DB) error {
	_, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`)
	return err
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blocks (
			id       BIGSERIAL PRIMARY KEY,
			height   INT NOT NULL UNIQUE,
			hash     BYTEA NOT NULL,
			prevhash BYTEA NOT NULL,
			time     BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS txs (
			id       BIGSERIAL PRIMARY KEY,
			block_id BIGINT NOT NULL REFERENCES blocks(id),
			n        INT NOT NULL,
			txid     BYTEA NOT NULL,
			type     TEXT NOT NULL,
			UNIQUE(block_id, n)
		)`,
		`CREATE TABLE IF NOT EXISTS txouts (
			tx_id BIGINT NOT NULL REFERENCES txs(id),
			n     INT NOT NULL,
			value BIGINT NOT NULL,
			type  TEXT NOT NULL,
			addr  TEXT,
			spent BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (tx_id, n)
		)`,
		`CREATE TABLE IF NOT EXISTS param_overrides (
			id     TEXT NOT NULL,
			height INT NOT NULL,
			value  BIGINT NOT NULL,
			PRIMARY KEY (id, height)
		)`,
		// Tx-id columns below are TEXT, not BYTEA like blocks/txs: the
		// governance records carry their tx-id pre-formatted as hex
		// (ProposalRec.TxID and friends), not raw bytes.
		`CREATE TABLE IF NOT EXISTS proposals (
			txid         TEXT PRIMARY KEY,
			cycle_index  INT NOT NULL,
			kind         TEXT NOT NULL,
			name         TEXT NOT NULL,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			link         TEXT NOT NULL DEFAULT '',
			param_id     TEXT NOT NULL DEFAULT '',
			param_value  BIGINT NOT NULL DEFAULT 0,
			amount       BIGINT NOT NULL DEFAULT 0,
			asset_ticker TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS blind_votes (
			txid       TEXT PRIMARY KEY,
			height     INT NOT NULL,
			stake      BIGINT NOT NULL,
			commitment BYTEA NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vote_reveals (
			txid            TEXT PRIMARY KEY,
			height          INT NOT NULL,
			blind_vote_txid TEXT NOT NULL REFERENCES blind_votes(txid)
		)`,
		`CREATE TABLE IF NOT EXISTS cycle_results (
			cycle_index   INT NOT NULL,
			proposal_txid TEXT NOT NULL,
			outcome       TEXT NOT NULL,
			accept_weight BIGINT NOT NULL,
			reject_weight BIGINT NOT NULL,
			total_stake   BIGINT NOT NULL,
			PRIMARY KEY (cycle_index, proposal_txid)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("db: create schema: %w", err)
		}
	}
	return nil
}

// LastHeight returns the height of the most recently committed block, or
// -1 if the store is empty.
func (w *PGWriter) LastHeight() (int32, error) {
	var height sql.NullInt32
	if err := w.db.QueryRow(`SELECT MAX(height) FROM blocks`).Scan(&height); err != nil {
		return -1, err
	}
	if !height.Valid {
		return -1, nil
	}
	return height.Int32, nil
}

// Package db is the Postgres snapshot store for the governance engine: a
// bulk-COPY writer for the append-only block/tx/txout chain plus the
// governance tables the overlay adds on top — params, proposals, blind
// votes, vote reveals, cycles — and a sqlx-backed read side over them.
package db

import "github.com/govblock/daoengine/govblock"

// BlockRec is one committed block row, restricted to the persisted
// header fields; colored-coin classification detail lives in the
// tx/txout tables.
type BlockRec struct {
	Id       int64
	Height   int32
	Hash     govblock.Uint256
	PrevHash govblock.Uint256
	Time     uint64
	Txs      []*TxRec
}

// TxRec is one classified tx row.
type TxRec struct {
	BlockId int64
	N       int // position within block
	TxID    govblock.Uint256
	Type    string
	Outs    []*TxOutRec
}

// TxOutRec is one classified output row.
type TxOutRec struct {
	TxId  int64
	N     uint32
	Value uint64
	Type  string
	Addr  string
	Spent bool
}

// ParamOverrideRec is one height-indexed override row for a Param.
type ParamOverrideRec struct {
	ID     string `db:"id"`
	Height int32  `db:"height"`
	Value  int64  `db:"value"`
}

// ProposalRec is one confirmed proposal row.
type ProposalRec struct {
	TxID        string `db:"txid"`
	CycleIndex  int32  `db:"cycle_index"`
	Kind        string `db:"kind"`
	Name        string `db:"name"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Link        string `db:"link"`
	ParamID     string `db:"param_id"`
	ParamValue  int64  `db:"param_value"`
	Amount      int64  `db:"amount"`
	AssetTicker string `db:"asset_ticker"`
}

// BlindVoteRec is one confirmed blind-vote row.
type BlindVoteRec struct {
	TxID       string `db:"txid"`
	Height     int32  `db:"height"`
	Stake      int64  `db:"stake"`
	Commitment []byte `db:"commitment"`
}

// VoteRevealRec is one confirmed vote-reveal row.
type VoteRevealRec struct {
	TxID          string `db:"txid"`
	Height        int32  `db:"height"`
	BlindVoteTxID string `db:"blind_vote_txid"`
}

// CycleResultRec is one proposal's tally outcome for a cycle.
type CycleResultRec struct {
	CycleIndex   int32  `db:"cycle_index"`
	ProposalTxID string `db:"proposal_txid"`
	Outcome      string `db:"outcome"`
	AcceptWeight int64  `db:"accept_weight"`
	RejectWeight int64  `db:"reject_weight"`
	TotalStake   int64  `db:"total_stake"`
}

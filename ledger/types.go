// Package ledger implements the colored-coin Ledger State: the
// height-addressed chain of parsed blocks, the colored UTXO set, the Tx
// Output Classifier, and the Block Parser.
package ledger

import (
	"github.com/govblock/daoengine/govblock"
)

// OutputType classifies a single transaction output.
type OutputType int

const (
	OutputUndefined OutputType = iota
	OutputGenesis
	OutputColored
	OutputBTC
	OutputProposalOpReturn
	OutputCompRequestOpReturn
	OutputBlindVoteOpReturn
	OutputVoteRevealOpReturn
	OutputIssuance
	OutputLockup
	OutputUnlock
	OutputOpReturnOther
)

func (t OutputType) String() string {
	switch t {
	case OutputGenesis:
		return "GENESIS"
	case OutputColored:
		return "COLORED"
	case OutputBTC:
		return "BTC_OUT"
	case OutputProposalOpReturn:
		return "PROPOSAL_OP_RETURN"
	case OutputCompRequestOpReturn:
		return "COMP_REQUEST_OP_RETURN"
	case OutputBlindVoteOpReturn:
		return "BLIND_VOTE_OP_RETURN"
	case OutputVoteRevealOpReturn:
		return "VOTE_REVEAL_OP_RETURN"
	case OutputIssuance:
		return "ISSUANCE"
	case OutputLockup:
		return "LOCKUP"
	case OutputUnlock:
		return "UNLOCK"
	case OutputOpReturnOther:
		return "OP_RETURN_OTHER"
	default:
		return "UNDEFINED"
	}
}

// TxType classifies a whole transaction, derived strictly
// from the sequence of its output classifications.
type TxType int

const (
	TxUndefined TxType = iota
	TxTransferColored
	TxPayTradeFee
	TxProposal
	TxCompensationRequest
	TxBlindVote
	TxVoteReveal
	TxLockup
	TxUnlock
	TxGenesis
	TxAssetRemoval
	TxIrregular
)

func (t TxType) String() string {
	switch t {
	case TxTransferColored:
		return "TRANSFER_COLORED"
	case TxPayTradeFee:
		return "PAY_TRADE_FEE"
	case TxProposal:
		return "PROPOSAL"
	case TxCompensationRequest:
		return "COMPENSATION_REQUEST"
	case TxBlindVote:
		return "BLIND_VOTE"
	case TxVoteReveal:
		return "VOTE_REVEAL"
	case TxLockup:
		return "LOCKUP"
	case TxUnlock:
		return "UNLOCK"
	case TxGenesis:
		return "GENESIS"
	case TxAssetRemoval:
		return "ASSET_REMOVAL"
	case TxIrregular:
		return "IRREGULAR"
	default:
		return "UNDEFINED"
	}
}

// OutputKey addresses a TxOutput by (tx-id, index), the key space
// snapshots use to order outputs.
type OutputKey struct {
	TxID  govblock.Uint256
	Index uint32
}

// TxOutput is the parsed, classified view of a base-chain output.
type TxOutput struct {
	TxID    govblock.Uint256
	Index   uint32
	Value   uint64
	Address string
	Type    OutputType
	Spent   bool
}

func (o *TxOutput) Key() OutputKey { return OutputKey{TxID: o.TxID, Index: o.Index} }

// IsColoredFamily reports whether this output carries overlay value, as
// opposed to being a plain base-chain or op-return output.
func (o *TxOutput) IsColoredFamily() bool {
	switch o.Type {
	case OutputGenesis, OutputColored, OutputIssuance, OutputLockup, OutputUnlock:
		return true
	default:
		return false
	}
}

// TxInput is a parsed input, resolved against the colored TxOutput it
// spends when that output is known to the ledger.
type TxInput struct {
	PrevTxID     govblock.Uint256
	PrevIndex    uint32
	ColoredSpend *TxOutput // nil if the referenced output isn't colored/known
}

// Tx is the classified view of a base-chain transaction.
type Tx struct {
	Type     TxType
	TxID     govblock.Uint256
	Height   int32
	TxIns    []*TxInput
	TxOuts   []*TxOutput
	BurntFee uint64
}

// Block is the parsed view of a RawBlock restricted to colored or
// governance-relevant transactions.
type Block struct {
	Height       int32
	Time         uint64
	Hash         govblock.Uint256
	PreviousHash govblock.Uint256
	Txs          []*Tx
}

package ledger

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/govblock/daoengine/govblock"
	"github.com/govblock/daoengine/opret"
)

// addressFromScript recovers the standard encoded address behind a locking
// script, if any. Most op-return and non-standard scripts have none; those
// outputs are left with an empty Address, not an error.
func addressFromScript(script []byte) string {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, &chaincfg.MainNetParams)
	if err != nil || len(addrs) != 1 {
		return ""
	}
	return addrs[0].EncodeAddress()
}

// Resolver looks up the colored TxOutput (if any) that an OutPoint spends.
// The ledger's UTXO set implements this; tests can supply a plain map.
type Resolver interface {
	ColoredOutput(txid govblock.Uint256, index uint32) *TxOutput
}

// mapIntentOutputType maps a decoded op-return intent to the OutputType
// assigned to the marker output itself.
func mapIntentOutputType(t opret.Type) OutputType {
	switch t {
	case opret.TypeProposal:
		return OutputProposalOpReturn
	case opret.TypeCompensationRequest:
		return OutputCompRequestOpReturn
	case opret.TypeBlindVote:
		return OutputBlindVoteOpReturn
	case opret.TypeVoteReveal:
		return OutputVoteRevealOpReturn
	default:
		return OutputOpReturnOther
	}
}

func mapIntentTxType(t opret.Type) TxType {
	switch t {
	case opret.TypeProposal:
		return TxProposal
	case opret.TypeCompensationRequest:
		return TxCompensationRequest
	case opret.TypeBlindVote:
		return TxBlindVote
	case opret.TypeVoteReveal:
		return TxVoteReveal
	case opret.TypeLockup:
		return TxLockup
	case opret.TypeUnlock:
		return TxUnlock
	case opret.TypeAssetRemoval:
		return TxAssetRemoval
	default:
		return TxIrregular
	}
}

// findOpReturn scans outputs for the one provably-unspendable OP_RETURN
// output, returning its index and decoded intent. Any
// failure to decode a script that IS an op-return script is reported so the
// caller can downgrade the whole tx to IRREGULAR; a script that is simply
// not an op-return at all is not an error, it's just absent.
func findOpReturn(outs []*govblock.RawTxOut) (index int, intent *opret.Intent, decodeErr error, found bool) {
	for i, o := range outs {
		push, err := opret.ExtractPushData(o.ScriptPubKey)
		if err == opret.ErrNotOpReturn {
			continue
		}
		if err != nil {
			return i, nil, err, true
		}
		it, err := opret.Decode(push)
		return i, it, err, true
	}
	return 0, nil, nil, false
}

// ClassifyTx applies the Tx Output Classifier to a raw
// transaction already known to be non-genesis. resolve is used to look up
// the colored TxOutput backing each input, if any.
func ClassifyTx(raw *govblock.RawTx, height int32, resolve Resolver) *Tx {
	txid := raw.Hash()

	tx := &Tx{TxID: txid, Height: height}

	var available uint64
	tx.TxIns = make([]*TxInput, len(raw.TxIns))
	for i, in := range raw.TxIns {
		ti := &TxInput{PrevTxID: in.PrevOut.Hash, PrevIndex: in.PrevOut.N}
		if spent := resolve.ColoredOutput(in.PrevOut.Hash, in.PrevOut.N); spent != nil && spent.IsColoredFamily() {
			ti.ColoredSpend = spent
			available += spent.Value
		}
		tx.TxIns[i] = ti
	}
	initialAvailable := available

	opIndex, intent, decodeErr, hasOpReturn := findOpReturn(raw.TxOuts)

	tx.TxOuts = make([]*TxOutput, len(raw.TxOuts))
	for i, o := range raw.TxOuts {
		tx.TxOuts[i] = &TxOutput{TxID: txid, Index: uint32(i), Value: uint64(o.Value), Address: addressFromScript(o.ScriptPubKey)}
	}

	if hasOpReturn && decodeErr != nil {
		// Local recovery: downgrade to IRREGULAR, no
		// colored outputs recognized beyond bookkeeping.
		for i, out := range tx.TxOuts {
			if i == opIndex {
				out.Type = OutputOpReturnOther
			} else {
				out.Type = OutputBTC
			}
		}
		tx.Type = TxIrregular
		return tx
	}

	requiredIdx := -1
	if intent != nil {
		requiredIdx = 0
		if requiredIdx == opIndex {
			requiredIdx = 1
		}
		if requiredIdx >= len(tx.TxOuts) {
			requiredIdx = -1 // malformed: no room for the required output
		}
	}
	requiredOK := requiredIdx < 0 // vacuously satisfied if there's no requirement

	latched := false
	for i, out := range tx.TxOuts {
		if hasOpReturn && i == opIndex {
			out.Type = mapIntentOutputType(intent.Type)
			continue
		}
		if latched || available < out.Value {
			out.Type = OutputBTC
			available = 0
			latched = true
			continue
		}

		out.Type = coloredSubtype(intent, i, requiredIdx, tx, resolve)
		available -= out.Value
		if i == requiredIdx {
			requiredOK = out.Type != OutputBTC
		}
	}

	// available is whatever colored input value was never claimed by a
	// colored output. The latch rule already zeroes it the moment an
	// under-funded output forces the rest of the tx to BTC_OUT: that value
	// went to a real (if uncolored) output, it wasn't burnt. Only the
	// unlatched remainder left over at the end of a fully-colored tx counts
	// as a burnt fee.
	tx.BurntFee = available
	tx.Type = classifyTxType(intent, initialAvailable, requiredOK, tx.BurntFee)
	return tx
}

// coloredSubtype decides the OutputType of a fully-funded (non-latched)
// output given the tx's declared intent.
func coloredSubtype(intent *opret.Intent, idx, requiredIdx int, tx *Tx, resolve Resolver) OutputType {
	if intent == nil {
		return OutputColored
	}
	switch intent.Type {
	case opret.TypeLockup:
		if idx == requiredIdx {
			return OutputLockup
		}
	case opret.TypeUnlock:
		if idx == requiredIdx {
			for _, in := range tx.TxIns {
				if in.ColoredSpend != nil && in.ColoredSpend.Type == OutputLockup && in.PrevTxID == intent.LockupTxID {
					return OutputUnlock
				}
			}
		}
	}
	return OutputColored
}

func classifyTxType(intent *opret.Intent, initialAvailable uint64, requiredOK bool, burntFee uint64) TxType {
	if intent != nil {
		if !requiredOK {
			return TxIrregular
		}
		return mapIntentTxType(intent.Type)
	}
	if initialAvailable == 0 {
		return TxUndefined
	}
	if burntFee > 0 {
		return TxPayTradeFee
	}
	return TxTransferColored
}

package govblock

import (
	"bytes"
	"fmt"
	"io"
)

// RawTx is a base-chain transaction before any overlay classification:
// ordered inputs and outputs plus the fields needed to compute its
// (witness-stripped) tx-id.
type RawTx struct {
	Version  uint32
	TxIns    RawTxInList
	TxOuts   RawTxOutList
	LockTime uint32
	SegWit   bool
}

// Hash is the tx-id: double-SHA256 of the transaction serialized without
// its segwit marker/flag and witness stacks, matching how the base chain
// computes it and how 32-byte tx-ids are expected to be compared.
func (tx *RawTx) Hash() Uint256 {
	buf := new(bytes.Buffer)
	tx.binWriteWithoutWitness(buf)
	return ShaSha256(buf.Bytes())
}

func (tx *RawTx) BinRead(r io.Reader) (err error) {
	if err = BinRead(&tx.Version, r); err != nil {
		return err
	}
	if err = BinRead(&tx.TxIns, r); err != nil {
		return err
	}

	var witnessCount int
	if len(tx.TxIns) == 0 { // segwit marker/flag: txin count read as 0
		flag, err := readVarInt(r)
		if err != nil {
			return err
		}
		if flag != 1 {
			return fmt.Errorf("invalid segwit flag: %d", flag)
		}
		if err = BinRead(&tx.TxIns, r); err != nil {
			return err
		}
		witnessCount = len(tx.TxIns)
	}

	if err = BinRead(&tx.TxOuts, r); err != nil {
		return err
	}

	if witnessCount > 0 {
		for _, in := range tx.TxIns {
			var w Witness
			if err = BinRead(&w, r); err != nil {
				return err
			}
			in.Witness = w
		}
		tx.SegWit = true
	}

	return BinRead(&tx.LockTime, r)
}

func (tx *RawTx) binWriteWithoutWitness(w io.Writer) (err error) {
	if err = BinWrite(tx.Version, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxIns, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxOuts, w); err != nil {
		return err
	}
	return BinWrite(tx.LockTime, w)
}

type RawTxList []*RawTx

func (txs *RawTxList) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		var tx RawTx
		if err := BinRead(&tx, r); err != nil {
			return err
		}
		*txs = append(*txs, &tx)
		return nil
	})
}

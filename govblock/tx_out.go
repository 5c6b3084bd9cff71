package govblock

import "io"

// RawTxOut is a transaction output exactly as it appears on the base chain:
// a value in satoshis and a locking script. The overlay's output
// classification (colored/base/op-return/...) is layered on top by the
// ledger package, not here.
type RawTxOut struct {
	Value        int64
	ScriptPubKey []byte
}

func (o *RawTxOut) Size() int {
	return 8 + compactSizeSize(uint64(len(o.ScriptPubKey))) + len(o.ScriptPubKey)
}

func (o *RawTxOut) BinRead(r io.Reader) (err error) {
	if err = BinRead(&o.Value, r); err != nil {
		return err
	}
	o.ScriptPubKey, err = readString(r)
	return err
}

func (o *RawTxOut) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(o.Value, w); err != nil {
		return err
	}
	return writeString(o.ScriptPubKey, w)
}

type RawTxOutList []*RawTxOut

func (outs *RawTxOutList) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		var o RawTxOut
		if err := BinRead(&o, r); err != nil {
			return err
		}
		*outs = append(*outs, &o)
		return nil
	})
}

func (outs *RawTxOutList) BinWrite(w io.Writer) error {
	return writeList(w, len(*outs), func(w io.Writer, i int) error {
		return BinWrite((*outs)[i], w)
	})
}

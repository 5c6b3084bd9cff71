package govblock

import "io"

// OutPoint names a prior output: the spending tx's reference to a
// (prev-tx-id, output-index) pair.
type OutPoint struct {
	Hash Uint256
	N    uint32
}

type RawTxIn struct {
	PrevOut   OutPoint
	ScriptSig []byte
	Sequence  uint32
	Witness   Witness
}

func (in *RawTxIn) BaseSize() int {
	const outpoint, sequence = 32 + 4, 4
	return outpoint + compactSizeSize(uint64(len(in.ScriptSig))) + len(in.ScriptSig) + sequence
}

func (in *RawTxIn) BinRead(r io.Reader) (err error) {
	if err = BinRead(&in.PrevOut, r); err != nil {
		return err
	}
	if in.ScriptSig, err = readString(r); err != nil {
		return err
	}
	return BinRead(&in.Sequence, r)
}

func (in *RawTxIn) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(in.PrevOut, w); err != nil {
		return err
	}
	if err = writeString(in.ScriptSig, w); err != nil {
		return err
	}
	return BinWrite(in.Sequence, w)
}

type RawTxInList []*RawTxIn

func (ins *RawTxInList) BinRead(r io.Reader) error {
	return readList(r, func(r io.Reader) error {
		var in RawTxIn
		if err := BinRead(&in, r); err != nil {
			return err
		}
		*ins = append(*ins, &in)
		return nil
	})
}

func (ins *RawTxInList) BinWrite(w io.Writer) error {
	return writeList(w, len(*ins), func(w io.Writer, i int) error {
		return BinWrite((*ins)[i], w)
	})
}

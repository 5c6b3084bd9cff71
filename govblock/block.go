package govblock

import (
	"fmt"
	"io"
)

const (
	MainNetMagic = 0xd9b4bef9
	TestNetMagic = 0x0709110b
)

// RawBlock is the wire-format block delivered by the base-chain block
// source: a header plus its ordered raw transactions, with no
// colored-coin classification applied yet.
type RawBlock struct {
	Magic uint32
	*RawBlockHeader
	Txs RawTxList
}

// Hash is the block hash, computed from the header. Height is not part of
// the wire format and RawBlock carries none; ledger.State.ParseBlock takes
// it as a separate argument.
func (b *RawBlock) Hash() Uint256 {
	return b.RawBlockHeader.Hash()
}

func (b *RawBlock) BinRead(r io.Reader) error {
	m, err := readMagic(r)
	if err != nil {
		return err
	}

	if b.Magic > 0 && b.Magic != m {
		return fmt.Errorf("bad magic: %d", m)
	}

	var size uint32
	if err := BinRead(&size, r); err != nil {
		return err
	}

	var bh RawBlockHeader
	if err := BinRead(&bh, r); err != nil {
		return err
	}
	b.RawBlockHeader = &bh

	if err := BinRead(&b.Txs, r); err != nil {
		return err
	}
	return nil
}

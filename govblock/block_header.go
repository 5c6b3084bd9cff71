package govblock

import (
	"bytes"
	"io"
)

// RawBlockHeader is the 80-byte Bitcoin-like block header: version, parent
// hash, merkle root, time, and the proof-of-work fields. PoW validation is
// delegated to the base-chain node; this type only
// carries the fields the overlay needs for linkage and timestamps.
type RawBlockHeader struct {
	Version        uint32
	PrevHash       Uint256
	HashMerkleRoot Uint256
	Time           uint32
	Bits           uint32
	Nonce          uint32
}

func (bh *RawBlockHeader) Hash() Uint256 {
	buf := new(bytes.Buffer)
	BinWrite(bh, buf)
	return ShaSha256(buf.Bytes())
}

// VarInt32 is a Bitcoin Core compact-size integer truncated to 32 bits, the
// encoding Bitcoin Core's on-disk index formats use.
type VarInt32 uint32

func (v *VarInt32) BinRead(r io.Reader) error {
	i, err := readVarInt(r)
	if err != nil {
		return err
	}
	*v = VarInt32(i)
	return nil
}

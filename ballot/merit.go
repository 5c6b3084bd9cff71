package ballot

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/govblock/daoengine/govblock"
)

// MeritEntry proves a voter received tokens from a past compensation
// issuance; IssuanceTxID names the issuing tx, Signature authenticates the
// claim. Signature verification is a wallet/key-management concern; the
// tally engine trusts entries that decrypt successfully.
type MeritEntry struct {
	IssuanceTxID govblock.Uint256
	Signature    [64]byte
}

// SerializeMerit encodes a merit list the same length-prefixed way
// SerializeBallots encodes a ballot list, so both lists share one
// deterministic wire convention.
func SerializeMerit(entries []MeritEntry) []byte {
	buf := new(bytes.Buffer)
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(entries)))
	buf.Write(countBuf[:])
	for _, e := range entries {
		buf.Write(e.IssuanceTxID[:])
		buf.Write(e.Signature[:])
	}
	return buf.Bytes()
}

// DeserializeMerit inverts SerializeMerit.
func DeserializeMerit(b []byte) ([]MeritEntry, error) {
	if len(b) < 4 {
		return nil, errors.New("ballot: short merit-list payload")
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	const entrySize = 32 + 64
	out := make([]MeritEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(b) < entrySize {
			return nil, errors.New("ballot: truncated merit-list payload")
		}
		var e MeritEntry
		copy(e.IssuanceTxID[:], b[:32])
		copy(e.Signature[:], b[32:entrySize])
		out = append(out, e)
		b = b[entrySize:]
	}
	return out, nil
}

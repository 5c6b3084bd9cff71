package govblock

import (
	"bytes"
	"testing"
)

func Test_RawTx_BinRead_simple(t *testing.T) {
	tx := &RawTx{
		Version: 1,
		TxIns: RawTxInList{
			{PrevOut: OutPoint{N: 0}, ScriptSig: []byte{0x01, 0x02}, Sequence: 0xffffffff},
		},
		TxOuts: RawTxOutList{
			{Value: 5000, ScriptPubKey: []byte{0x76, 0xa9}},
		},
		LockTime: 0,
	}

	buf := new(bytes.Buffer)
	if err := tx.binWriteWithoutWitness(buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got RawTx
	if err := BinRead(&got, buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(got.TxIns) != 1 || len(got.TxOuts) != 1 {
		t.Fatalf("unexpected shape: %+v", got)
	}
	if got.TxOuts[0].Value != 5000 {
		t.Errorf("value = %d, want 5000", got.TxOuts[0].Value)
	}
	if got.Hash() != tx.Hash() {
		t.Errorf("hash mismatch after round-trip")
	}
}

func Test_Uint256_roundtrip(t *testing.T) {
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(i)
	}
	u := Uint256FromBytes(b)
	s := u.String()

	got, err := Uint256FromString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != u {
		t.Errorf("roundtrip mismatch: %v != %v", got, u)
	}
}

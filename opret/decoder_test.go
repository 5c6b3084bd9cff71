package opret

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/txscript"
)

func buildOpReturnScript(t *testing.T, push []byte) []byte {
	t.Helper()
	script, err := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).AddData(push).Script()
	if err != nil {
		t.Fatalf("build script: %v", err)
	}
	return script
}

func Test_DecodeScript_proposal(t *testing.T) {
	var hash [20]byte
	for i := range hash {
		hash[i] = byte(i + 1)
	}
	push := append([]byte{byte(TypeProposal), CurrentVersion}, hash[:]...)
	script := buildOpReturnScript(t, push)

	intent, err := DecodeScript(script)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if intent.Type != TypeProposal {
		t.Errorf("type = %x, want proposal", intent.Type)
	}
	if !bytes.Equal(intent.Hash[:], hash[:]) {
		t.Errorf("hash mismatch")
	}
}

func Test_DecodeScript_voteReveal(t *testing.T) {
	var key [16]byte
	var merit [20]byte
	for i := range key {
		key[i] = byte(i + 100)
	}
	for i := range merit {
		merit[i] = byte(i)
	}
	push := append([]byte{byte(TypeVoteReveal), CurrentVersion}, append(key[:], merit[:]...)...)
	script := buildOpReturnScript(t, push)

	intent, err := DecodeScript(script)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(intent.Key[:], key[:]) {
		t.Errorf("key mismatch")
	}
	if !bytes.Equal(intent.MeritDigest[:], merit[:]) {
		t.Errorf("merit digest mismatch")
	}
}

func Test_Decode_unknownType(t *testing.T) {
	_, err := Decode([]byte{0xFF, CurrentVersion, 1, 2, 3})
	if err == nil {
		t.Fatal("expected error for unknown type tag")
	}
}

func Test_Decode_unsupportedVersion(t *testing.T) {
	_, err := Decode([]byte{byte(TypeProposal), 0x99, 0, 0, 0})
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func Test_Decode_shortPayload(t *testing.T) {
	_, err := Decode([]byte{byte(TypeProposal), CurrentVersion, 1, 2})
	if err == nil {
		t.Fatal("expected ErrShortOpReturn")
	}
}

func Test_ExtractPushData_notOpReturn(t *testing.T) {
	script, _ := txscript.NewScriptBuilder().AddOp(txscript.OP_DUP).Script()
	if _, err := ExtractPushData(script); err != ErrNotOpReturn {
		t.Fatalf("err = %v, want ErrNotOpReturn", err)
	}
}

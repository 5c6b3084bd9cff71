// Package opret decodes the op-return marker output of an overlay
// transaction into a typed intent.
package opret

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// Type tags. The op-return script is OP_RETURN <push>, push = [type:u8]
// [version:u8] [payload...].
type Type byte

const (
	TypeProposal            Type = 0x10
	TypeCompensationRequest Type = 0x11
	TypeBlindVote           Type = 0x12
	TypeVoteReveal          Type = 0x13
	TypeLockup              Type = 0x14
	TypeUnlock              Type = 0x15
	TypeAssetRemoval        Type = 0x16
)

// CurrentVersion is the only version byte this decoder accepts. A
// forward-compatible decoder would range-check; this one treats any
// version it doesn't know as UnsupportedVersion.
const CurrentVersion byte = 0x01

var (
	ErrUnknownOpReturnType = errors.New("opret: unknown type tag")
	ErrShortOpReturn       = errors.New("opret: payload too short")
	ErrUnsupportedVersion  = errors.New("opret: unsupported version byte")
	ErrNotOpReturn         = errors.New("opret: not an op-return script")
)

// Intent is the decoded content of an op-return output.
type Intent struct {
	Type Type
	// Hash is the 20-byte RIPEMD160(SHA256(...)) payload digest for
	// proposal/compensation-request/blind-vote intents.
	Hash [20]byte
	// Key is the 16-byte AES-128 key revealed for a vote-reveal intent.
	Key [16]byte
	// MeritDigest accompanies a vote-reveal intent.
	MeritDigest [20]byte
	// LockTime is the lockup duration in blocks for a lockup intent.
	LockTime uint32
	// LockupTxID is the referenced lockup tx for an unlock intent.
	LockupTxID [32]byte
}

// payloadLen gives the expected payload length (after type+version) for
// each type tag.
func payloadLen(t Type) (int, bool) {
	switch t {
	case TypeProposal, TypeCompensationRequest, TypeBlindVote, TypeAssetRemoval:
		return 20, true
	case TypeVoteReveal:
		return 16 + 20, true
	case TypeLockup:
		return 4, true
	case TypeUnlock:
		return 32, true
	default:
		return 0, false
	}
}

// ExtractPushData returns the bytes pushed by an OP_RETURN script, or
// ErrNotOpReturn if script isn't a provably-unspendable OP_RETURN output.
func ExtractPushData(script []byte) ([]byte, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
		return nil, ErrNotOpReturn
	}
	if !tokenizer.Next() {
		return nil, ErrShortOpReturn
	}
	return tokenizer.Data(), nil
}

// Decode parses the pushed payload of an op-return script into an Intent.
// Any malformed tag, short payload, or unsupported version downgrades the
// owning tx to IRREGULAR at the caller (ledger package); Decode itself only
// reports which of the three failure kinds occurred.
func Decode(push []byte) (*Intent, error) {
	if len(push) < 2 {
		return nil, ErrShortOpReturn
	}
	tag := Type(push[0])
	version := push[1]
	payload := push[2:]

	wantLen, known := payloadLen(tag)
	if !known {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownOpReturnType, tag)
	}
	if version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if len(payload) < wantLen {
		return nil, ErrShortOpReturn
	}

	intent := &Intent{Type: tag}
	switch tag {
	case TypeProposal, TypeCompensationRequest, TypeBlindVote, TypeAssetRemoval:
		copy(intent.Hash[:], payload[:20])
	case TypeVoteReveal:
		// No hash here: the blind vote being revealed is identified by
		// the reveal tx spending that blind vote's stake output, not by
		// an explicit pointer in the op-return payload.
		copy(intent.Key[:], payload[:16])
		copy(intent.MeritDigest[:], payload[16:36])
	case TypeLockup:
		intent.LockTime = uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24
	case TypeUnlock:
		copy(intent.LockupTxID[:], payload[:32])
	}
	return intent, nil
}

// DecodeScript is a convenience wrapping ExtractPushData + Decode for a raw
// locking script.
func DecodeScript(script []byte) (*Intent, error) {
	push, err := ExtractPushData(script)
	if err != nil {
		return nil, err
	}
	return Decode(push)
}

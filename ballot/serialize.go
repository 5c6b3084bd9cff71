package ballot

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sort"

	"github.com/govblock/daoengine/govblock"
	"golang.org/x/crypto/ripemd160"
)

// ErrDecryptionFailed is the engine's DecryptionFailed kind: local recovery,
// the affected blind vote is disqualified from tally.
var ErrDecryptionFailed = errors.New("ballot: decryption failed")

// ErrCommitmentMismatch is the engine's CommitmentMismatch kind: local
// recovery, the blind-vote/reveal pair is discarded.
var ErrCommitmentMismatch = errors.New("ballot: commitment mismatch")

// BallotEntry is one (proposal, vote) pair inside a ballot list, the unit
// SerializeBallots operates on.
type BallotEntry struct {
	ProposalTxID govblock.Uint256
	Vote         Vote
}

// SerializeBallots produces the deterministic, length-prefixed encoding of
// a ballot list: entries sorted ascending by proposal-tx-id, each encoded
// as its 32-byte tx-id followed by a 1-byte vote tag. This is the exact
// byte sequence both encrypted into a blind vote and used to derive the
// commitment hash.
func SerializeBallots(entries []BallotEntry) []byte {
	sorted := make([]BallotEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return lessUint256(sorted[i].ProposalTxID, sorted[j].ProposalTxID)
	})

	buf := new(bytes.Buffer)
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(sorted)))
	buf.Write(countBuf[:])
	for _, e := range sorted {
		buf.Write(e.ProposalTxID[:])
		buf.WriteByte(byte(e.Vote))
	}
	return buf.Bytes()
}

// DeserializeBallots inverts SerializeBallots.
func DeserializeBallots(b []byte) ([]BallotEntry, error) {
	if len(b) < 4 {
		return nil, errors.New("ballot: short ballot-list payload")
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	out := make([]BallotEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(b) < 33 {
			return nil, errors.New("ballot: truncated ballot-list payload")
		}
		var e BallotEntry
		copy(e.ProposalTxID[:], b[:32])
		e.Vote = Vote(b[32])
		out = append(out, e)
		b = b[33:]
	}
	return out, nil
}

// EncryptAES128CBC seals plaintext under a 128-bit key, zero IV, PKCS#7
// padding. The returned ciphertext carries no IV prefix, and the
// commitment hash covers the ciphertext alone; this implementation uses a
// fixed all-zero IV because
// the blind-vote tx-id itself (unique per vote) is already mixed into the
// commitment's enclosing consensus context, matching the deterministic,
// replayable-state requirement of deterministic block parsing.
func EncryptAES128CBC(plaintext []byte, key [16]byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	iv := make([]byte, aes.BlockSize)
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptAES128CBC inverts EncryptAES128CBC. A malformed ciphertext length
// or bad padding returns ErrDecryptionFailed.
func DecryptAES128CBC(ciphertext []byte, key [16]byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	iv := make([]byte, aes.BlockSize)
	mode := cipher.NewCBCDecrypter(block, iv)
	plain := make([]byte, len(ciphertext))
	mode.CryptBlocks(plain, ciphertext)
	unpadded, err := pkcs7Unpad(plain)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return unpadded, nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	pad := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+pad)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(pad)
	}
	return padded
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("ballot: empty plaintext")
	}
	pad := int(b[len(b)-1])
	if pad == 0 || pad > len(b) || pad > aes.BlockSize {
		return nil, errors.New("ballot: bad padding")
	}
	for _, c := range b[len(b)-pad:] {
		if int(c) != pad {
			return nil, errors.New("ballot: bad padding")
		}
	}
	return b[:len(b)-pad], nil
}

// CommitmentHash computes RIPEMD160(SHA256(ciphertext)), the blind-vote
// commitment formula.
func CommitmentHash(ciphertext []byte) [20]byte {
	sum := sha256.Sum256(ciphertext)
	h := ripemd160.New()
	h.Write(sum[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyCommitment recomputes the commitment hash for ciphertext and
// compares it byte-exact against want.
func VerifyCommitment(ciphertext []byte, want [20]byte) error {
	got := CommitmentHash(ciphertext)
	if got != want {
		return ErrCommitmentMismatch
	}
	return nil
}

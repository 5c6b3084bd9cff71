// Package coredb is an embedded goleveldb cache for the governance engine's
// lookup-heavy read paths: the Period Service's phase-boundary cache, keyed
// by cycle index, and the proposal/blind-vote index, keyed by tx-id. Repurposed
// from a prior Bitcoin Core chainstate/block-index reader, which
// parsed an on-disk UTXO set in goleveldb's own key encoding — a format
// this overlay has no equivalent of, so the key scheme here is the
// governance engine's own, not Bitcoin Core's.
package coredb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/govblock/daoengine/govblock"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key prefixes distinguish the two record families sharing one database,
// following the convention of a single on-disk db with a small prefix
// byte scheme.
const (
	prefixPhaseBoundary byte = 'p' // cycle-index -> first-block height
	prefixBallotIndex   byte = 'b' // proposal/blind-vote tx-id -> cycle index
)

// Cache wraps a goleveldb handle. It is a cache, not a system of record:
// the Param Registry and Ledger State remain the consensus-critical source
// of truth; this only speeds up repeat lookups across
// process restarts.
type Cache struct {
	db *leveldb.DB
}

func Open(path string) (*Cache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("coredb: open %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func phaseBoundaryKey(cycleIndex uint32) []byte {
	key := make([]byte, 5)
	key[0] = prefixPhaseBoundary
	binary.BigEndian.PutUint32(key[1:], cycleIndex)
	return key
}

// PutPhaseBoundary caches cycleIndex's first-block height, set once when
// the Period Service instantiates that cycle.
func (c *Cache) PutPhaseBoundary(cycleIndex uint32, firstBlock int32) error {
	val := make([]byte, 4)
	binary.BigEndian.PutUint32(val, uint32(firstBlock))
	return c.db.Put(phaseBoundaryKey(cycleIndex), val, nil)
}

// PhaseBoundary returns the cached first-block height of cycleIndex, if
// previously stored.
func (c *Cache) PhaseBoundary(cycleIndex uint32) (int32, bool, error) {
	val, err := c.db.Get(phaseBoundaryKey(cycleIndex), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int32(binary.BigEndian.Uint32(val)), true, nil
}

func ballotIndexKey(txid govblock.Uint256) []byte {
	key := make([]byte, 1+len(txid))
	key[0] = prefixBallotIndex
	copy(key[1:], txid[:])
	return key
}

// IndexBallot records which cycle a proposal or blind-vote tx belongs to.
// ballot.Store does not read this index; its BallotsValidAndConfirmed and
// BallotsClosed scan the store's own in-memory proposal map.
func (c *Cache) IndexBallot(txid govblock.Uint256, cycleIndex uint32) error {
	val := make([]byte, 4)
	binary.BigEndian.PutUint32(val, cycleIndex)
	return c.db.Put(ballotIndexKey(txid), val, nil)
}

// BallotCycle returns the cached cycle index for txid, if indexed.
func (c *Cache) BallotCycle(txid govblock.Uint256) (uint32, bool, error) {
	val, err := c.db.Get(ballotIndexKey(txid), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return binary.BigEndian.Uint32(val), true, nil
}

// TxIDsInCycle scans the ballot index for every tx-id cached against
// cycleIndex. Nothing in cmd/daoengine calls it; on restart the in-memory
// Ballot Store starts empty.
func (c *Cache) TxIDsInCycle(cycleIndex uint32) ([]govblock.Uint256, error) {
	iter := c.db.NewIterator(util.BytesPrefix([]byte{prefixBallotIndex}), nil)
	defer iter.Release()

	var out []govblock.Uint256
	for iter.Next() {
		key := iter.Key()
		if len(key) != 1+32 {
			continue
		}
		if binary.BigEndian.Uint32(iter.Value()) != cycleIndex {
			continue
		}
		var txid govblock.Uint256
		copy(txid[:], key[1:])
		out = append(out, txid)
	}
	return out, iter.Error()
}

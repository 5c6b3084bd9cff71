package coredb

import (
	"testing"

	"github.com/govblock/daoengine/govblock"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func Test_Cache_PhaseBoundary_roundTrip(t *testing.T) {
	c := openTestCache(t)

	if _, ok, err := c.PhaseBoundary(3); err != nil || ok {
		t.Fatalf("expected a miss before Put, got ok=%v err=%v", ok, err)
	}

	if err := c.PutPhaseBoundary(3, 12345); err != nil {
		t.Fatalf("PutPhaseBoundary: %v", err)
	}

	got, ok, err := c.PhaseBoundary(3)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if got != 12345 {
		t.Errorf("PhaseBoundary = %d, want 12345", got)
	}
}

func Test_Cache_BallotIndex_roundTrip(t *testing.T) {
	c := openTestCache(t)

	var txid govblock.Uint256
	txid[0] = 7

	if err := c.IndexBallot(txid, 2); err != nil {
		t.Fatalf("IndexBallot: %v", err)
	}

	got, ok, err := c.BallotCycle(txid)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if got != 2 {
		t.Errorf("BallotCycle = %d, want 2", got)
	}
}

func Test_Cache_TxIDsInCycle(t *testing.T) {
	c := openTestCache(t)

	var a, b, other govblock.Uint256
	a[0], b[0], other[0] = 1, 2, 3

	if err := c.IndexBallot(a, 5); err != nil {
		t.Fatalf("IndexBallot a: %v", err)
	}
	if err := c.IndexBallot(b, 5); err != nil {
		t.Fatalf("IndexBallot b: %v", err)
	}
	if err := c.IndexBallot(other, 6); err != nil {
		t.Fatalf("IndexBallot other: %v", err)
	}

	got, err := c.TxIDsInCycle(5)
	if err != nil {
		t.Fatalf("TxIDsInCycle: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

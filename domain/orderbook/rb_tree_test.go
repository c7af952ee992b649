package orderbook

import (
	"math/rand"
	"testing"
)

func TestTreeInsertFindDelete(t *testing.T) {
	tr := newTree()
	lvl := tr.getOrInsert(100)
	if lvl == nil {
		t.Fatal("getOrInsert returned nil")
	}
	if tr.get(100) != lvl {
		t.Error("get did not return the inserted level")
	}

	tr.getOrInsert(200)
	if tr.min().Price != 100 {
		t.Error("expected min=100")
	}
	if tr.max().Price != 200 {
		t.Error("expected max=200")
	}

	tr.delete(100)
	if tr.get(100) != nil {
		t.Error("expected level 100 to be gone")
	}
	if tr.len() != 1 {
		t.Errorf("expected len 1, got %d", tr.len())
	}
}

func TestTreeEmptyMinMax(t *testing.T) {
	tr := newTree()
	if tr.min() != nil || tr.max() != nil {
		t.Error("expected nil min/max on empty tree")
	}
}

func TestTreeDuplicateInsert(t *testing.T) {
	tr := newTree()
	a := tr.getOrInsert(150)
	b := tr.getOrInsert(150)
	if a != b {
		t.Error("getOrInsert should return the same node for a duplicate price")
	}
	if tr.len() != 1 {
		t.Errorf("expected len 1, got %d", tr.len())
	}
}

func TestTreeOrderedTraversal(t *testing.T) {
	tr := newTree()
	rng := rand.New(rand.NewSource(42))
	prices := rng.Perm(500)
	for _, p := range prices {
		tr.getOrInsert(int64(p + 1))
	}

	var last int64
	count := 0
	tr.ascend(func(lvl *PriceLevel) bool {
		if lvl.Price <= last {
			t.Fatalf("ascend out of order: %d after %d", lvl.Price, last)
		}
		last = lvl.Price
		count++
		return true
	})
	if count != 500 {
		t.Fatalf("expected 500 levels, visited %d", count)
	}

	last = int64(1 << 30)
	tr.descend(func(lvl *PriceLevel) bool {
		if lvl.Price >= last {
			t.Fatalf("descend out of order: %d after %d", lvl.Price, last)
		}
		last = lvl.Price
		return true
	})
}

func TestTreeRandomDelete(t *testing.T) {
	tr := newTree()
	rng := rand.New(rand.NewSource(7))
	for _, p := range rng.Perm(200) {
		tr.getOrInsert(int64(p + 1))
	}
	for _, p := range rng.Perm(200)[:100] {
		tr.delete(int64(p + 1))
	}

	seen := 0
	var last int64
	tr.ascend(func(lvl *PriceLevel) bool {
		if lvl.Price <= last {
			t.Fatalf("order violated after deletes: %d after %d", lvl.Price, last)
		}
		last = lvl.Price
		seen++
		return true
	})
	if seen != tr.len() {
		t.Fatalf("len %d disagrees with traversal %d", tr.len(), seen)
	}
	if seen != 100 {
		t.Fatalf("expected 100 surviving levels, got %d", seen)
	}
}

func TestTreeEarlyStop(t *testing.T) {
	tr := newTree()
	for p := int64(1); p <= 10; p++ {
		tr.getOrInsert(p)
	}
	count := 0
	tr.ascend(func(*PriceLevel) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Fatalf("expected traversal to stop at 3, got %d", count)
	}
}

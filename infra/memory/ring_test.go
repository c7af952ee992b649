package memory

import "testing"

func TestRingFIFO(t *testing.T) {
	r := NewRing[int](8)
	for i := 0; i < 8; i++ {
		v := i
		if !r.Enqueue(&v) {
			t.Fatalf("enqueue %d should fit", i)
		}
	}

	extra := 99
	if r.Enqueue(&extra) {
		t.Fatal("enqueue past capacity must fail")
	}

	for i := 0; i < 8; i++ {
		v := r.Dequeue()
		if v == nil || *v != i {
			t.Fatalf("expected %d, got %v", i, v)
		}
	}
	if r.Dequeue() != nil {
		t.Fatal("dequeue on empty ring must return nil")
	}
}

func TestRingWrapAround(t *testing.T) {
	r := NewRing[int](4)
	for round := 0; round < 100; round++ {
		v := round
		if !r.Enqueue(&v) {
			t.Fatalf("round %d: enqueue failed", round)
		}
		got := r.Dequeue()
		if got == nil || *got != round {
			t.Fatalf("round %d: got %v", round, got)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty ring, len %d", r.Len())
	}
}

func TestRingRejectsNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for size 6")
		}
	}()
	NewRing[int](6)
}

func TestRingSPSC(t *testing.T) {
	const n = 100000
	r := NewRing[uint64](1024)
	done := make(chan uint64)

	go func() {
		var sum uint64
		seen := 0
		for seen < n {
			v := r.Dequeue()
			if v == nil {
				continue
			}
			sum += *v
			seen++
		}
		done <- sum
	}()

	var want uint64
	for i := uint64(1); i <= n; i++ {
		want += i
		v := i
		for !r.Enqueue(&v) {
		}
	}

	if got := <-done; got != want {
		t.Fatalf("consumer sum %d, want %d", got, want)
	}
}

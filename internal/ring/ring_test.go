package ring

import "testing"

func TestBufferEvictsOldest(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	if got := b.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	got := b.All()
	want := []int{5, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("All()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBufferRecentCapsAtAvailable(t *testing.T) {
	b := New[string](10)
	b.Push("a")
	b.Push("b")
	if got := b.Recent(5); len(got) != 2 {
		t.Fatalf("Recent(5) returned %d items, want 2", len(got))
	}
}

func TestBufferRecentOrder(t *testing.T) {
	b := New[int](5)
	b.Push(1)
	b.Push(2)
	b.Push(3)
	got := b.Recent(2)
	if len(got) != 2 || got[0] != 3 || got[1] != 2 {
		t.Fatalf("Recent(2) = %v, want [3 2]", got)
	}
}

func TestNewPanicsOnNonPositiveCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-positive capacity")
		}
	}()
	New[int](0)
}

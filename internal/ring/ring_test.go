package ring

import "testing"

func TestDropOldest(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.Append(i)
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	got := b.Items()
	want := []int{3, 4, 5}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("Items()[%d] = %d, want %d", i, got[i], v)
		}
	}
}

func TestLast(t *testing.T) {
	b := New[int](500)
	for i := 1; i <= 10; i++ {
		b.Append(i)
	}
	got := b.Last(3)
	want := []int{8, 9, 10}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("Last(3)[%d] = %d, want %d", i, got[i], v)
		}
	}
	if len(b.Last(0)) != 0 {
		t.Fatal("Last(0) should be empty")
	}
}

func TestCapFloor(t *testing.T) {
	b := New[int](0)
	if b.Cap() != 1 {
		t.Fatalf("Cap() = %d, want 1", b.Cap())
	}
}

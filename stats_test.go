package vgplay

import "testing"

func TestRollingAverage(t *testing.T) {
	r := NewRollingAverage(3)

	if r.Average() != 0 || r.Last() != 0 || r.Count() != 0 {
		t.Fatal("empty window not zeroed")
	}

	r.Add(2)
	r.Add(4)
	if got := r.Average(); got != 3 {
		t.Errorf("partial window average = %v, want 3", got)
	}
	if got := r.Last(); got != 4 {
		t.Errorf("Last = %v, want 4", got)
	}

	// Filling past the window evicts oldest-first.
	r.Add(6)
	r.Add(8) // evicts 2
	if got := r.Average(); got != 6 {
		t.Errorf("rolled average = %v, want 6", got)
	}
	if got := r.Last(); got != 8 {
		t.Errorf("Last after roll = %v, want 8", got)
	}
	if got := r.Count(); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}

	r.Add(10) // evicts 4
	r.Add(12) // evicts 6
	if got := r.Average(); got != 10 {
		t.Errorf("average after more rolls = %v, want 10", got)
	}
	if got := r.Last(); got != 12 {
		t.Errorf("Last = %v, want 12", got)
	}

	r.Reset()
	if r.Count() != 0 || r.Average() != 0 {
		t.Error("Reset did not clear the window")
	}
	r.Add(5)
	if got := r.Average(); got != 5 {
		t.Errorf("average after reset+add = %v, want 5", got)
	}
}

func TestRollingAverageDefaultWindow(t *testing.T) {
	r := NewRollingAverage(0)
	for i := 0; i < 100; i++ {
		r.Add(float64(i))
	}
	if got := r.Count(); got != 30 {
		t.Errorf("Count = %d, want the default window of 30", got)
	}
	// Window holds 70..99.
	if got := r.Average(); got != 84.5 {
		t.Errorf("Average = %v, want 84.5", got)
	}
	if got := r.Last(); got != 99 {
		t.Errorf("Last = %v, want 99", got)
	}
}

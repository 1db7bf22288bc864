package nullsink

import "testing"

func TestSinkCounts(t *testing.T) {
	var s Sink
	frame := make([]byte, 2*2*4)
	for i := 0; i < 5; i++ {
		if err := s.Present(frame, 2, 2, 8); err != nil {
			t.Fatal(err)
		}
	}
	if s.Frames() != 5 {
		t.Errorf("Frames = %d, want 5", s.Frames())
	}
	if s.Bytes() != 5*16 {
		t.Errorf("Bytes = %d, want 80", s.Bytes())
	}
}

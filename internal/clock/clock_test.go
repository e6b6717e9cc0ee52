package clock

import "testing"

func TestNormalizeTimestamp(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"seconds unchanged", 1_700_000_000, 1_700_000_000},
		{"millis divided", 1_700_000_000_000, 1_700_000_000},
		{"boundary exact stays", 1e10, 1e10},
		{"just above boundary divides", 1e10 + 1, (1e10 + 1) / 1000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := NormalizeTimestamp(c.in); got != c.want {
				t.Fatalf("NormalizeTimestamp(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestNormalizeTimestampIdempotent(t *testing.T) {
	in := 1_700_000_000_000.0
	once := NormalizeTimestamp(in)
	twice := NormalizeTimestamp(once)
	if once != twice {
		t.Fatalf("normalization not idempotent: %v != %v", once, twice)
	}
}

func TestNewIDUnique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatalf("expected distinct IDs, got %q twice", a)
	}
}

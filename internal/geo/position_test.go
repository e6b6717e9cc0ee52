package geo

import "testing"

func TestBlockFloorsEachAxis(t *testing.T) {
	cases := []struct {
		p    Position
		want BlockPosition
	}{
		{Position{1.9, 2.1, -0.5}, BlockPosition{1, 2, -1}},
		{Position{-1.1, 0, 5.999}, BlockPosition{-2, 0, 5}},
		{Position{3, 4, 5}, BlockPosition{3, 4, 5}},
	}
	for _, c := range cases {
		if got := c.p.Block(); got != c.want {
			t.Fatalf("Position(%v).Block() = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestDistance(t *testing.T) {
	a := Position{0, 0, 0}
	b := Position{3, 4, 0}
	if d := a.Distance(b); d != 5 {
		t.Fatalf("Distance = %v, want 5", d)
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := (Position{1, 1, 1}).Div(0); err != ErrDivideByZero {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}

func TestAxisNeighbors(t *testing.T) {
	bp := BlockPosition{0, 0, 0}
	neighbors := bp.AxisNeighbors()
	if len(neighbors) != 6 {
		t.Fatalf("expected 6 neighbors, got %d", len(neighbors))
	}
	seen := map[BlockPosition]bool{}
	for _, n := range neighbors {
		if seen[n] {
			t.Fatalf("duplicate neighbor %v", n)
		}
		seen[n] = true
		if n.Distance(bp) != 1 {
			t.Fatalf("neighbor %v not unit distance from origin", n)
		}
	}
}

package nearby

import (
	"strings"
	"testing"

	"github.com/l1jgo/mcagent/internal/geo"
)

func TestCompressPositionsChoosesShortestAndAllCandidatesExist(t *testing.T) {
	var positions []geo.BlockPosition
	for x := int64(1); x <= 5; x++ {
		positions = append(positions, geo.BlockPosition{X: x, Y: 64, Z: 0})
	}
	positions = append(positions, geo.BlockPosition{X: 3, Y: 65, Z: 0})

	got := CompressPositions(positions)
	if got == "" {
		t.Fatalf("expected non-empty compressed output")
	}
	rawLen := len(encodeRaw(positions))
	if len(got) > rawLen {
		t.Fatalf("chosen encoding (%d chars) longer than raw fallback (%d chars)", len(got), rawLen)
	}
}

func TestCompressPositionsSingleValueHasNoTilde(t *testing.T) {
	positions := []geo.BlockPosition{{X: 3, Y: 65, Z: 0}}
	got := CompressPositions(positions)
	if strings.Contains(got, "~") {
		t.Fatalf("single-point encoding should not contain a range marker, got %q", got)
	}
}

func TestMergeRuns(t *testing.T) {
	cases := []struct {
		in   []int64
		want string
	}{
		{[]int64{1, 2, 3, 4, 5}, "1~5"},
		{[]int64{1, 3, 5}, "1|3|5"},
		{[]int64{7}, "7"},
		{[]int64{1, 2, 4, 5, 6}, "1~2|4~6"},
	}
	for _, c := range cases {
		if got := mergeRuns(c.in); got != c.want {
			t.Fatalf("mergeRuns(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRenderGroupsGroupsByType(t *testing.T) {
	groups := map[string][]geo.BlockPosition{
		"stone": {{X: 1, Y: 1, Z: 1}},
		"dirt":  {{X: 2, Y: 2, Z: 2}},
	}
	out := RenderGroups(groups)
	if !strings.Contains(out, "stone:") || !strings.Contains(out, "dirt:") {
		t.Fatalf("expected both group labels present, got %q", out)
	}
}

// Package nearby implements the nearby-block query/compression engine
// (C8): gathering cached blocks within two radii, grouping them by type,
// and rendering each group's position list with the shortest of several
// run-length textual encodings. It also implements placement and
// stand-candidate analysis over the same cache.
package nearby

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/l1jgo/mcagent/internal/blockcache"
	"github.com/l1jgo/mcagent/internal/geo"
)

// Empty block names mean "no block here" for grouping/compression purposes.
var emptyBlockNames = map[string]bool{"air": true, "cave_air": true}

// Query gathers cached blocks around center and groups them by type for
// compression. A block qualifies if it's within fullDistance (regardless
// of visibility) or within canSeeDistance and currently visible.
func Query(cache *blockcache.Cache, center geo.BlockPosition, fullDistance, canSeeDistance float64) map[string][]geo.BlockPosition {
	widerRadius := fullDistance
	if canSeeDistance > widerRadius {
		widerRadius = canSeeDistance
	}
	candidates := cache.BlocksInRange(center, widerRadius)

	groups := make(map[string][]geo.BlockPosition)
	for _, b := range candidates {
		if emptyBlockNames[b.BlockType] {
			continue
		}
		d := b.Position.Distance(center)
		qualifies := d <= fullDistance || (b.CanSee && d <= canSeeDistance)
		if !qualifies {
			continue
		}
		groups[b.BlockType] = append(groups[b.BlockType], b.Position)
	}
	return groups
}

// RenderGroups compresses every group to its shortest textual encoding and
// renders one "type: encoding" line per block type, sorted by type name,
// e.g. "dirt: (...)\nstone: (...)".
func RenderGroups(groups map[string][]geo.BlockPosition) string {
	types := make([]string, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s: %s", t, CompressPositions(groups[t])))
	}
	return strings.Join(parts, "\n")
}

// candidate is one of the textual encodings considered for a position set.
type candidate struct {
	name string
	text string
}

// CompressPositions picks the shortest of several run-length encodings of
// positions and returns its text. Ties are broken by candidate order
// (raw first), so the choice is deterministic.
func CompressPositions(positions []geo.BlockPosition) string {
	if len(positions) == 0 {
		return ""
	}
	candidates := []candidate{
		{"raw", encodeRaw(positions)},
		{"mergeX", encodeMergeAxis(positions, axisX)},
		{"mergeY", encodeMergeAxis(positions, axisY)},
		{"mergeZ", encodeMergeAxis(positions, axisZ)},
		{"factorZ", encodeFactor(positions, axisZ, axisY, axisX)},
		{"factorY", encodeFactor(positions, axisY, axisZ, axisX)},
		{"factorX", encodeFactor(positions, axisX, axisZ, axisY)},
		{"box", encodeBox(positions)},
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.text) < len(best.text) {
			best = c
		}
	}
	return best.text
}

type axis int

const (
	axisX axis = iota
	axisY
	axisZ
)

func (a axis) name() string { return [...]string{"x", "y", "z"}[a] }

func axisValue(p geo.BlockPosition, a axis) int64 {
	switch a {
	case axisX:
		return p.X
	case axisY:
		return p.Y
	default:
		return p.Z
	}
}

// encodeRaw renders every position as "(x,y,z)", comma-joined.
func encodeRaw(positions []geo.BlockPosition) string {
	sorted := sortedCopy(positions)
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
	}
	return strings.Join(parts, ",")
}

// mergeRuns turns a sorted list of distinct ints into "a~b"/"a" run tokens.
func mergeRuns(values []int64) string {
	if len(values) == 0 {
		return ""
	}
	var runs []string
	start, prev := values[0], values[0]
	flush := func(end int64) {
		if start == end {
			runs = append(runs, strconv.FormatInt(start, 10))
		} else {
			runs = append(runs, fmt.Sprintf("%d~%d", start, end))
		}
	}
	for _, v := range values[1:] {
		if v == prev+1 {
			prev = v
			continue
		}
		flush(prev)
		start, prev = v, v
	}
	flush(prev)
	return strings.Join(runs, "|")
}

// encodeMergeAxis groups positions by the two axes other than merge, sorts
// the merge axis within each group into runs, and emits one token per
// group: "(merge=runs,other2=v,other1=v)".
func encodeMergeAxis(positions []geo.BlockPosition, merge axis) string {
	other1, other2 := otherAxes(merge)
	type key struct{ a, b int64 }
	groups := make(map[key][]int64)
	for _, p := range positions {
		k := key{axisValue(p, other1), axisValue(p, other2)}
		groups[k] = append(groups[k], axisValue(p, merge))
	}
	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		vals := groups[k]
		sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
		tokens = append(tokens, fmt.Sprintf("(%s=%s,%s=%d,%s=%d)",
			merge.name(), mergeRuns(dedupe(vals)), other2.name(), k.b, other1.name(), k.a))
	}
	return strings.Join(tokens, ",")
}

// otherAxes returns the two axes other than a, in a stable order.
func otherAxes(a axis) (axis, axis) {
	switch a {
	case axisX:
		return axisY, axisZ
	case axisY:
		return axisX, axisZ
	default:
		return axisX, axisY
	}
}

func dedupe(sorted []int64) []int64 {
	out := sorted[:0:0]
	var prev int64
	for i, v := range sorted {
		if i == 0 || v != prev {
			out = append(out, v)
		}
		prev = v
	}
	return out
}

// encodeFactor groups by the "slab" axis, then within each slab merges
// adjacent "run" axis values that share an identical "inner" axis
// run-signature. Blocks are joined with ";" across slabs.
func encodeFactor(positions []geo.BlockPosition, slab, run, inner axis) string {
	type slabGroup struct {
		runVal  int64
		innerSig string
	}
	bySlab := make(map[int64][]slabGroup)
	slabRunInner := make(map[int64]map[int64][]int64)
	for _, p := range positions {
		s := axisValue(p, slab)
		rv := axisValue(p, run)
		iv := axisValue(p, inner)
		if slabRunInner[s] == nil {
			slabRunInner[s] = make(map[int64][]int64)
		}
		slabRunInner[s][rv] = append(slabRunInner[s][rv], iv)
	}
	for s, runMap := range slabRunInner {
		runVals := make([]int64, 0, len(runMap))
		for rv := range runMap {
			runVals = append(runVals, rv)
		}
		sort.Slice(runVals, func(i, j int) bool { return runVals[i] < runVals[j] })
		for _, rv := range runVals {
			vals := runMap[rv]
			sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
			sig := mergeRuns(dedupe(vals))
			bySlab[s] = append(bySlab[s], slabGroup{runVal: rv, innerSig: sig})
		}
	}

	slabs := make([]int64, 0, len(bySlab))
	for s := range bySlab {
		slabs = append(slabs, s)
	}
	sort.Slice(slabs, func(i, j int) bool { return slabs[i] < slabs[j] })

	var blocks []string
	for _, s := range slabs {
		groups := bySlab[s]
		// merge adjacent run values sharing an identical inner signature
		var merged []string
		i := 0
		for i < len(groups) {
			j := i
			for j+1 < len(groups) && groups[j+1].runVal == groups[j].runVal+1 && groups[j+1].innerSig == groups[i].innerSig {
				j++
			}
			runToken := strconv.FormatInt(groups[i].runVal, 10)
			if j != i {
				runToken = fmt.Sprintf("%d~%d", groups[i].runVal, groups[j].runVal)
			}
			merged = append(merged, fmt.Sprintf("(%s=%s,%s=%s)", inner.name(), groups[i].innerSig, run.name(), runToken))
			i = j + 1
		}
		blocks = append(blocks, fmt.Sprintf("%s=%d{%s}", slab.name(), s, strings.Join(merged, ",")))
	}
	return strings.Join(blocks, ";")
}

// encodeBox performs the fullest merge: it builds the (y,z)->x-run
// signature from encodeMergeAxis's grouping, merges adjacent y sharing a
// signature within a z-slab (as encodeFactor does for z), and additionally
// merges adjacent z-slabs whose entire per-slab token list is identical,
// collapsing them into a z-range. This approximates the original's
// box-merge for the common case of axis-aligned slabs/walls.
func encodeBox(positions []geo.BlockPosition) string {
	zRunInner := make(map[int64]map[int64][]int64)
	for _, p := range positions {
		if zRunInner[p.Z] == nil {
			zRunInner[p.Z] = make(map[int64][]int64)
		}
		zRunInner[p.Z][p.Y] = append(zRunInner[p.Z][p.Y], p.X)
	}
	zKeys := make([]int64, 0, len(zRunInner))
	for z := range zRunInner {
		zKeys = append(zKeys, z)
	}
	sort.Slice(zKeys, func(i, j int) bool { return zKeys[i] < zKeys[j] })

	zTokenLists := make(map[int64]string, len(zKeys))
	for _, z := range zKeys {
		yMap := zRunInner[z]
		yVals := make([]int64, 0, len(yMap))
		for y := range yMap {
			yVals = append(yVals, y)
		}
		sort.Slice(yVals, func(i, j int) bool { return yVals[i] < yVals[j] })

		type ySeg struct {
			y   int64
			sig string
		}
		ySegs := make([]ySeg, 0, len(yVals))
		for _, y := range yVals {
			vals := yMap[y]
			sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
			ySegs = append(ySegs, ySeg{y: y, sig: mergeRuns(dedupe(vals))})
		}

		var merged []string
		i := 0
		for i < len(ySegs) {
			j := i
			for j+1 < len(ySegs) && ySegs[j+1].y == ySegs[j].y+1 && ySegs[j+1].sig == ySegs[i].sig {
				j++
			}
			yToken := strconv.FormatInt(ySegs[i].y, 10)
			if j != i {
				yToken = fmt.Sprintf("%d~%d", ySegs[i].y, ySegs[j].y)
			}
			merged = append(merged, fmt.Sprintf("(x=%s,y=%s)", ySegs[i].sig, yToken))
			i = j + 1
		}
		zTokenLists[z] = strings.Join(merged, ",")
	}

	var blocks []string
	i := 0
	for i < len(zKeys) {
		j := i
		for j+1 < len(zKeys) && zKeys[j+1] == zKeys[j]+1 && zTokenLists[zKeys[j+1]] == zTokenLists[zKeys[i]] {
			j++
		}
		zToken := strconv.FormatInt(zKeys[i], 10)
		if j != i {
			zToken = fmt.Sprintf("%d~%d", zKeys[i], zKeys[j])
		}
		blocks = append(blocks, fmt.Sprintf("z=%s{%s}", zToken, zTokenLists[zKeys[i]]))
		i = j + 1
	}
	return strings.Join(blocks, ";")
}

func sortedCopy(positions []geo.BlockPosition) []geo.BlockPosition {
	out := append([]geo.BlockPosition(nil), positions...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].Z < out[j].Z
	})
	return out
}

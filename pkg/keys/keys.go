/*
Package keys derives substitution weights from keyboard geometry.

Two keys are "nearby" when their centres are within 2.5 key radii of each
other, where the radius is the distance from a key's centre to its corner.
The weight of a nearby pair is the inverse square of that distance in
radius units, so adjacent keys on one row score around .7, keys in the row
below around .25, and keys two apart around .17.
*/
package keys

import (
	"math"
	"sort"
	"unicode"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
)

// Key codes that never take part in nearby-key comparisons.
const (
	CodeNone      rune = 0
	CodeBackspace rune = 8
	CodeReturn    rune = 13
	CodeShift     rune = 16
	CodeAlt       rune = 18
	CodeCapsLock  rune = 20
	CodeSpace     rune = 32
)

const maxDistanceSquared = 2.5 * 2.5

// Key is one key of a rendered layout. Coordinates are in any consistent
// unit, usually pixels, with X/Y at the top left corner.
type Key struct {
	Code   rune    `msgpack:"code" toml:"code"`
	X      float64 `msgpack:"x" toml:"x"`
	Y      float64 `msgpack:"y" toml:"y"`
	Width  float64 `msgpack:"width" toml:"width"`
	Height float64 `msgpack:"height" toml:"height"`
}

// Layout is the geometry of every key currently on screen.
type Layout struct {
	Keys []Key `msgpack:"keys" toml:"keys"`
}

// IsSpecial reports whether code is excluded from nearby-key comparisons.
func IsSpecial(code rune) bool {
	switch code {
	case CodeNone, CodeBackspace, CodeReturn, CodeShift, CodeAlt, CodeCapsLock, CodeSpace:
		return true
	default:
		return false
	}
}

// NearbyMap maps a key's character to the characters near it and their
// proximity weights in (0, 1]. Pairs that aren't nearby are absent.
type NearbyMap map[rune]map[rune]float64

// Weight returns the proximity of b to a, or 0 if b is not near a.
func (m NearbyMap) Weight(a, b rune) float64 {
	return m[a][b]
}

// Has reports whether r is a key of the layout the map was built from.
func (m NearbyMap) Has(r rune) bool {
	_, ok := m[r]
	return ok
}

// Neighbors lists the keys near r, closest first.
func (m NearbyMap) Neighbors(r rune) []rune {
	near := m[r]
	out := maps.Keys(near)
	sort.Slice(out, func(i, j int) bool {
		if near[out[i]] != near[out[j]] {
			return near[out[i]] > near[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Clone returns a deep copy of the map.
func (m NearbyMap) Clone() NearbyMap {
	if m == nil {
		return nil
	}
	out := make(NearbyMap, len(m))
	for k, near := range m {
		out[k] = maps.Clone(near)
	}
	return out
}

// Build computes the nearby-key map of a layout. Key codes are lowercased
// first; the layout itself is not modified.
func Build(layout Layout) NearbyMap {
	keys := make([]Key, len(layout.Keys))
	for i, k := range layout.Keys {
		k.Code = unicode.ToLower(k.Code)
		keys[i] = k
	}

	nearby := make(NearbyMap, len(keys))
	for i, key1 := range keys {
		if IsSpecial(key1.Code) {
			continue
		}
		near := make(map[rune]float64)
		for j, key2 := range keys {
			if i == j || IsSpecial(key2.Code) {
				continue
			}
			if d := proximity(key1, key2); d != 0 {
				near[key2.Code] = d
			}
		}
		nearby[key1.Code] = near
	}
	return nearby
}

// proximity is the inverse square distance between the centres of two keys,
// measured in radii of key1. Keys further than 2.5 radii apart score 0, as
// do overlapping keys.
func proximity(key1, key2 Key) float64 {
	cx1 := key1.X + key1.Width/2
	cy1 := key1.Y + key1.Height/2
	cx2 := key2.X + key2.Width/2
	cy2 := key2.Y + key2.Height/2
	radius := math.Sqrt(key1.Width*key1.Width/4 + key1.Height*key1.Height/4)
	if radius == 0 {
		return 0
	}

	dx := (cx1 - cx2) / radius
	dy := (cy1 - cy2) / radius
	d2 := dx*dx + dy*dy

	if d2 < 1 {
		log.Warnf("Keys too close: %q at (%.0f,%.0f) and %q at (%.0f,%.0f)",
			key1.Code, key1.X, key1.Y, key2.Code, key2.X, key2.Y)
		return 0
	}
	if d2 > maxDistanceSquared {
		return 0
	}
	return 1 / d2
}

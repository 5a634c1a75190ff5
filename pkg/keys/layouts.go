package keys

import "strings"

// Standard key geometry used by the built-in layouts.
const (
	StandardKeyWidth  = 32
	StandardKeyHeight = 43
	standardRowGap    = 8
	standardTop       = 29
)

// Rows builds a layout from rows of characters. Each row is shifted right
// by its offset (in key widths) and rows are stacked top to bottom. A
// space bar, shift, backspace and return are added below.
func Rows(rows []string, offsets []float64) Layout {
	var layout Layout
	y := float64(standardTop)
	for i, row := range rows {
		x := 0.0
		if i < len(offsets) {
			x = offsets[i] * StandardKeyWidth
		}
		for _, r := range row {
			layout.Keys = append(layout.Keys, Key{
				Code:   r,
				X:      x,
				Y:      y,
				Width:  StandardKeyWidth,
				Height: StandardKeyHeight,
			})
			x += StandardKeyWidth
		}
		y += StandardKeyHeight + standardRowGap
	}

	layout.Keys = append(layout.Keys,
		Key{Code: CodeShift, X: 0, Y: y, Width: StandardKeyWidth * 1.5, Height: StandardKeyHeight},
		Key{Code: CodeSpace, X: StandardKeyWidth * 2, Y: y, Width: StandardKeyWidth * 5, Height: StandardKeyHeight},
		Key{Code: CodeBackspace, X: StandardKeyWidth * 7, Y: y, Width: StandardKeyWidth * 1.5, Height: StandardKeyHeight},
		Key{Code: CodeReturn, X: StandardKeyWidth * 8.5, Y: y, Width: StandardKeyWidth * 1.5, Height: StandardKeyHeight},
	)
	return layout
}

// QWERTY is the standard English layout.
func QWERTY() Layout {
	return Rows([]string{"qwertyuiop", "asdfghjkl", "zxcvbnm"}, []float64{0, 0.5, 1.5})
}

// AZERTY is the standard French layout.
func AZERTY() Layout {
	return Rows([]string{"azertyuiop", "qsdfghjklm", "wxcvbn'"}, []float64{0, 0, 1.5})
}

// Named returns a built-in layout by name.
func Named(name string) (Layout, bool) {
	switch strings.ToLower(name) {
	case "qwerty":
		return QWERTY(), true
	case "azerty":
		return AZERTY(), true
	default:
		return Layout{}, false
	}
}

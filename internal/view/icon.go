package view

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IconFilter returns a CSS filter that tints a monochrome icon close to the
// base color, shifted a little per index so that neighbouring icons differ.
// The same base and index always give the same filter.
func IconFilter(base string, index int) string {
	h, s, l := hexToHSL(base)
	seed := uint32(index+1) * 2654435761
	shift := float64(seed%41) - 20
	sat := 60 + s*100 + float64((seed>>8)%30)
	bright := 70 + l*60 + float64((seed>>16)%20)
	return fmt.Sprintf("invert(%d%%) sepia(60%%) saturate(%d%%) hue-rotate(%ddeg) brightness(%d%%)",
		int(math.Round(l*100)),
		int(math.Round(sat*10)),
		int(math.Round(math.Mod(h+shift+360, 360))),
		int(math.Round(bright)),
	)
}

// hexToHSL converts #rrggbb or #rgb. Malformed input is treated as black.
func hexToHSL(hex string) (h, s, l float64) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	r := float64(v>>16&0xff) / 255
	g := float64(v>>8&0xff) / 255
	b := float64(v&0xff) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2
	if maxC == minC {
		return 0, 0, l
	}
	d := maxC - minC
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}
	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h * 60, s, l
}

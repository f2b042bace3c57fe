package timeline

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var (
	White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Black = color.NRGBA{A: 255}
)

// ParseColor accepts "#rgb", "#rrggbb", "#rrggbbaa", named "white"/"black"/
// "transparent" and CSS-style "rgba(r, g, b, a)" with a in 0..1.
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	case "transparent":
		return color.NRGBA{}, nil
	}

	if strings.HasPrefix(v, "#") {
		return parseHex(v[1:])
	}
	if strings.HasPrefix(v, "rgba(") && strings.HasSuffix(v, ")") {
		return parseFunc(v[5:len(v)-1], true)
	}
	if strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")") {
		return parseFunc(v[4:len(v)-1], false)
	}
	return color.NRGBA{}, fmt.Errorf("unrecognized color %q", s)
}

func parseHex(h string) (color.NRGBA, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s", h)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s: %w", h, err)
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

func parseFunc(body string, withAlpha bool) (color.NRGBA, error) {
	parts := strings.Split(body, ",")
	want := 3
	if withAlpha {
		want = 4
	}
	if len(parts) != want {
		return color.NRGBA{}, fmt.Errorf("expected %d components, got %d", want, len(parts))
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("component %d out of range: %q", i, parts[i])
		}
		rgb[i] = uint8(n)
	}
	c := color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	if withAlpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("alpha: %w", err)
		}
		c.A = AlphaFromUnit(a)
	}
	return c, nil
}

// AlphaFromUnit converts a 0..1 alpha to 8 bits, clamping out of range input.
func AlphaFromUnit(a float64) uint8 {
	a = math.Max(0, math.Min(1, a))
	return uint8(math.Round(a * 255))
}

// FormatColor renders c as #rrggbbaa.
func FormatColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

package source

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return AlignLeft, fmt.Errorf("unknown text align %q", s)
}

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return "left"
}

// TextStyle describes a text run. Content may span several lines separated
// by "\n".
type TextStyle struct {
	Content     string
	Size        float64
	Color       color.NRGBA
	Bold        bool
	Align       Align
	LineSpacing float64 // multiple of the font's line height, 1 when zero
}

var (
	fontsOnce sync.Once
	fonts     map[bool]*opentype.Font
	fontsErr  error
)

func loadFonts() (map[bool]*opentype.Font, error) {
	fontsOnce.Do(func() {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			fontsErr = err
			return
		}
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			fontsErr = err
			return
		}
		fonts = map[bool]*opentype.Font{false: regular, true: bold}
	})
	return fonts, fontsErr
}

// RasterizeText renders style into a tightly sized transparent image.
func RasterizeText(style TextStyle) (*image.NRGBA, error) {
	if strings.TrimSpace(style.Content) == "" {
		return nil, errors.New("text is empty")
	}
	if !(style.Size > 0) {
		return nil, fmt.Errorf("font size must be positive, got %v", style.Size)
	}
	spacing := style.LineSpacing
	if spacing == 0 {
		spacing = 1
	}
	if spacing < 0 {
		return nil, fmt.Errorf("line spacing must be positive, got %v", spacing)
	}

	set, err := loadFonts()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	face, err := opentype.NewFace(set[style.Bold], &opentype.FaceOptions{
		Size:    style.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	step := int(math.Ceil(float64(m.Height) / 64 * spacing))

	lines := strings.Split(style.Content, "\n")
	widths := make([]int, len(lines))
	w := 1
	for i, line := range lines {
		widths[i] = font.MeasureString(face, line).Ceil()
		if widths[i] > w {
			w = widths[i]
		}
	}
	h := step*(len(lines)-1) + ascent + descent

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{Dst: dst, Src: image.NewUniform(style.Color), Face: face}
	for i, line := range lines {
		x := 0
		switch style.Align {
		case AlignCenter:
			x = (w - widths[i]) / 2
		case AlignRight:
			x = w - widths[i]
		}
		d.Dot = fixed.P(x, ascent+i*step)
		d.DrawString(line)
	}
	return dst, nil
}

package source

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/timeline2video/internal/failure"
)

// PageCount returns the number of pages of a PDF.
func PageCount(path string) (int, error) {
	if err := checkExists(path); err != nil {
		return 0, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return 0, failure.Asset(path, fmt.Errorf("%w: %v", failure.ErrUndecodable, err))
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Pages expands input into image references: every page of a PDF, every
// still image of a directory in name order, or the file itself.
func Pages(input string) ([]string, error) {
	fi, err := os.Stat(input)
	if err != nil {
		return nil, failure.Asset(input, failure.ErrAssetNotFound)
	}
	if fi.IsDir() {
		return ListImages(input)
	}
	if !isPDF(input) {
		return []string{input}, nil
	}
	n, err := PageCount(input)
	if err != nil {
		return nil, err
	}
	refs := make([]string, n)
	for i := range refs {
		refs[i] = FormatImageRef(input, i)
	}
	return refs, nil
}

// ListImages returns the decodable stills in dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, failure.Asset(dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

type FitMode int

const (
	FitNone FitMode = iota
	// FitContain scales to the largest size inside the box.
	FitContain
	// FitCover scales to the smallest size covering the box.
	FitCover
	// FitStretch ignores the aspect ratio.
	FitStretch
)

func ParseFit(s string) (FitMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return FitNone, nil
	case "contain":
		return FitContain, nil
	case "cover":
		return FitCover, nil
	case "stretch", "fill":
		return FitStretch, nil
	}
	return FitNone, fmt.Errorf("unknown fit mode %q", s)
}

// FitSize returns the size img should be resampled to for a w x h box.
// A zero w or h keeps the aspect ratio from the other side.
func FitSize(srcW, srcH, w, h int, mode FitMode) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return srcW, srcH
	}
	switch {
	case w <= 0 && h <= 0:
		return srcW, srcH
	case w <= 0:
		return max(1, int(math.Round(float64(srcW)*float64(h)/float64(srcH)))), h
	case h <= 0:
		return w, max(1, int(math.Round(float64(srcH)*float64(w)/float64(srcW))))
	}

	sx, sy := float64(w)/float64(srcW), float64(h)/float64(srcH)
	var s float64
	switch mode {
	case FitStretch, FitNone:
		return w, h
	case FitCover:
		s = math.Max(sx, sy)
	default:
		s = math.Min(sx, sy)
	}
	return max(1, int(math.Round(float64(srcW)*s))), max(1, int(math.Round(float64(srcH)*s)))
}

// Resize resamples img to w x h with a Catmull-Rom filter. The source is
// returned untouched when the size already matches.
func Resize(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

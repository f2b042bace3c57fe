// Package analyzer finds regions of interest on a raster, such as the
// paragraphs and figures of a slide, so a camera can visit them.
package analyzer

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// Block is a detected region in raster pixels.
type Block struct {
	Rect       image.Rectangle
	Confidence float64
}

// Detector is an image analysis strategy.
type Detector interface {
	Detect(img *image.NRGBA) []Block
}

// NewDetector returns the detector registered under variant; "" is the
// contrast detector.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	}
	return nil, fmt.Errorf("unknown detector variant: %s", variant)
}

// ContrastDetector groups strong luminance edges into blocks: Sobel edges,
// dilated so that letters of one paragraph merge, then connected components.
type ContrastDetector struct {
	// MinBlockArea drops components smaller than this many pixels.
	MinBlockArea int
	// EdgeThreshold is the minimum Sobel gradient magnitude of an edge.
	EdgeThreshold float64
	// DilateRadius and DilateIterations control how far edges spread.
	DilateRadius     int
	DilateIterations int
	// MaxBlocks keeps only the largest blocks; 0 keeps all.
	MaxBlocks int
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:     500,
		EdgeThreshold:    30,
		DilateRadius:     2,
		DilateIterations: 2,
		MaxBlocks:        8,
	}
}

// Detect returns blocks in scan order of their top-left-most pixel.
func (d *ContrastDetector) Detect(img *image.NRGBA) []Block {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return nil
	}

	mask := sobel(luma(img), w, h, d.EdgeThreshold)
	for i := 0; i < d.DilateIterations; i++ {
		mask = dilate(mask, w, h, d.DilateRadius)
	}

	var blocks []Block
	for _, r := range components(mask, w, h) {
		if r.Dx()*r.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{Rect: r.Add(b.Min), Confidence: 0.7})
	}

	if d.MaxBlocks > 0 && len(blocks) > d.MaxBlocks {
		byArea := make([]int, len(blocks))
		for i := range byArea {
			byArea[i] = i
		}
		sort.SliceStable(byArea, func(i, j int) bool {
			return area(blocks[byArea[i]].Rect) > area(blocks[byArea[j]].Rect)
		})
		keep := make(map[int]bool, d.MaxBlocks)
		for _, i := range byArea[:d.MaxBlocks] {
			keep[i] = true
		}
		kept := blocks[:0]
		for i, blk := range blocks {
			if keep[i] {
				kept = append(kept, blk)
			}
		}
		blocks = kept
	}
	return blocks
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// luma flattens img over white, so transparent areas count as background.
func luma(img *image.NRGBA) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			a := float64(p[3]) / 255
			l := 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
			out[y*w+x] = l*a + 255*(1-a)
		}
	}
	return out
}

func sobel(gray []float64, w, h int, threshold float64) []bool {
	edges := make([]bool, w*h)
	at := func(x, y int) float64 { return gray[y*w+x] }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			edges[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return edges
}

// dilate grows every set pixel to a (2r+1) square, clipped to the image.
func dilate(mask []bool, w, h, r int) []bool {
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for yy := max(0, y-r); yy <= min(h-1, y+r); yy++ {
				for xx := max(0, x-r); xx <= min(w-1, x+r); xx++ {
					out[yy*w+xx] = true
				}
			}
		}
	}
	return out
}

// components returns the bounding box of every 4-connected set region.
func components(mask []bool, w, h int) []image.Rectangle {
	visited := make([]bool, len(mask))
	var rects []image.Rectangle
	var stack []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] || visited[y*w+x] {
				continue
			}
			r := image.Rect(x, y, x+1, y+1)
			visited[y*w+x] = true
			stack = append(stack[:0], image.Point{X: x, Y: y})
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				for _, n := range [4]image.Point{{X: p.X + 1, Y: p.Y}, {X: p.X - 1, Y: p.Y}, {X: p.X, Y: p.Y + 1}, {X: p.X, Y: p.Y - 1}} {
					if n.X < 0 || n.X >= w || n.Y < 0 || n.Y >= h {
						continue
					}
					i := n.Y*w + n.X
					if mask[i] && !visited[i] {
						visited[i] = true
						stack = append(stack, n)
					}
				}
			}
			rects = append(rects, r)
		}
	}
	return rects
}

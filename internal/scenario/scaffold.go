package scenario

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SlideshowOptions shape the document produced by Slideshow.
type SlideshowOptions struct {
	Width, Height int
	FPS           int
	// PageDuration is how long each page is on screen, including the
	// cross fades on both sides.
	PageDuration float64
	Fade         float64
	Zoom         string
	ZoomSpeed    float64
	Background   string
	Music        string
}

// Slideshow lays pages out back to back. Consecutive pages alternate
// between two layers so they can cross fade; every page is fitted to the
// frame and gets a slow zoom.
func Slideshow(pages []string, opt SlideshowOptions) (*Document, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("slideshow: no pages")
	}
	if !(opt.PageDuration > 0) {
		return nil, fmt.Errorf("slideshow: page duration must be positive, got %v", opt.PageDuration)
	}
	fade := math.Max(0, math.Min(opt.Fade, opt.PageDuration/2))
	step := opt.PageDuration - fade
	fps := float64(opt.FPS)
	if fps > 0 {
		// Keep clip edges on frame boundaries.
		step = math.Ceil(step*fps-1e-9) / fps
	}
	total := step*float64(len(pages)-1) + opt.PageDuration

	doc := &Document{
		Version: "1.0",
		Settings: SettingsDoc{
			Width:      opt.Width,
			Height:     opt.Height,
			FPS:        opt.FPS,
			Duration:   total,
			Background: opt.Background,
		},
		Layers: []LayerDoc{{Name: "odd"}, {Name: "even"}},
	}

	for i, page := range pages {
		start := step * float64(i)
		clip := ClipDoc{
			Name:   fmt.Sprintf("page-%d", i+1),
			Start:  start,
			End:    math.Min(start+opt.PageDuration, total),
			Object: ObjectDoc{Type: "image", Path: page, Fit: "contain"},
		}
		if fade > 0 {
			in := fade
			if i == 0 {
				in = 0
			}
			out := fade
			if i == len(pages)-1 {
				out = 0
			}
			if in > 0 || out > 0 {
				clip.Fade = &FadeDoc{In: in, Out: out}
			}
		}
		if opt.Zoom != "" && opt.Zoom != "none" {
			clip.Zoom = &ZoomDoc{Mode: opt.Zoom, Speed: opt.ZoomSpeed, Outro: fade}
		}
		doc.Layers[i%2].Clips = append(doc.Layers[i%2].Clips, clip)
	}
	if len(doc.Layers[1].Clips) == 0 {
		doc.Layers = doc.Layers[:1]
	}

	if opt.Music != "" {
		doc.Music = []MusicDoc{{File: opt.Music, Loop: true}}
	}
	return doc, nil
}

// GeneratePath returns a timestamped file name for a new document in dir.
func GeneratePath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("timeline_%s.yaml", timestamp))
}

// FindLatest returns the most recently modified timeline file in dir.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read timelines directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".hcl":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no timeline files found in %s", dir)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].mod.After(found[j].mod)
	})
	return found[0].path, nil
}

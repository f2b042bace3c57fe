package video

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"

	"github.com/ivlev/timeline2video/internal/engine"
)

// ImageSequence writes every frame as a numbered file in Dir.
type ImageSequence struct {
	Dir string
	// Format is "png" or "webp"; webp is lossless.
	Format string
	// Limit stops the sequence after that many frames; 0 means no limit.
	Limit int
}

func ParseFormat(s string) (string, error) {
	switch s {
	case "", "png":
		return "png", nil
	case "webp":
		return "webp", nil
	}
	return "", fmt.Errorf("unknown image format %q", s)
}

// FramePath is the file frame index is written to.
func (s *ImageSequence) FramePath(index int) string {
	format := s.Format
	if format == "" {
		format = "png"
	}
	return filepath.Join(s.Dir, fmt.Sprintf("frame_%06d.%s", index, format))
}

func (s *ImageSequence) Accept(_ context.Context, index int, frame *image.RGBA) (engine.Signal, error) {
	if index == 0 {
		if err := os.MkdirAll(s.Dir, 0755); err != nil {
			return engine.Stop, err
		}
	}
	f, err := os.Create(s.FramePath(index))
	if err != nil {
		return engine.Stop, err
	}

	switch s.Format {
	case "webp":
		err = webp.Encode(f, frame, &webp.Options{Lossless: true})
	default:
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		err = enc.Encode(f, frame)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return engine.Stop, fmt.Errorf("frame %d: %w", index, err)
	}

	if s.Limit > 0 && index+1 >= s.Limit {
		return engine.Stop, nil
	}
	return engine.Continue, nil
}

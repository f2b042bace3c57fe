// Package config is the run configuration assembled by the CLI: where the
// timeline comes from, where output goes and how the render is tuned.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ivlev/timeline2video/internal/failure"
	"github.com/ivlev/timeline2video/internal/scenario"
	"github.com/ivlev/timeline2video/internal/timeline"
)

type Config struct {
	TimelinePath string
	OutputVideo  string
	FramesDir    string
	FramesFormat string

	// Start and End select the range; End 0 means the timeline duration.
	Start, End float64

	// Width, Height and FPS override the timeline settings when non-zero.
	Width, Height int
	FPS           int
	Preset        string

	Workers       int
	VideoEncoder  string
	Quality       int
	DPI           int
	ProgressEvery int
	LogLevel      string
	BuildVersion  string
}

// Presets are the named output formats.
var Presets = map[string][2]int{
	"16:9": {1280, 720},
	"9:16": {720, 1280},
	"4:5":  {1080, 1350},
}

// Validate checks the fields that do not depend on the timeline. Every
// problem is reported as a *failure.ConfigError.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Preset != "" {
		if _, ok := Presets[c.Preset]; !ok {
			result = multierror.Append(result, failure.Configf("preset", "unknown preset %q", c.Preset))
		}
	}
	if c.Width < 0 {
		result = multierror.Append(result, failure.Configf("width", "must not be negative, got %d", c.Width))
	}
	if c.Height < 0 {
		result = multierror.Append(result, failure.Configf("height", "must not be negative, got %d", c.Height))
	}
	if c.FPS < 0 {
		result = multierror.Append(result, failure.Configf("fps", "must not be negative, got %d", c.FPS))
	}
	if c.Workers < 0 {
		result = multierror.Append(result, failure.Configf("workers", "must not be negative, got %d", c.Workers))
	}
	if c.Start < 0 {
		result = multierror.Append(result, failure.Configf("start", "must not be negative, got %v", c.Start))
	}
	if c.End < 0 {
		result = multierror.Append(result, failure.Configf("end", "must not be negative, got %v", c.End))
	}
	switch c.FramesFormat {
	case "", "png", "webp":
	default:
		result = multierror.Append(result, failure.Configf("format", "must be png or webp, got %q", c.FramesFormat))
	}
	return result.ErrorOrNil()
}

// Apply writes the size and frame rate overrides into doc before it is
// built. A preset wins over explicit width and height.
func (c *Config) Apply(doc *scenario.Document) {
	if size, ok := Presets[c.Preset]; ok {
		doc.Settings.Width, doc.Settings.Height = size[0], size[1]
	} else {
		if c.Width > 0 {
			doc.Settings.Width = c.Width
		}
		if c.Height > 0 {
			doc.Settings.Height = c.Height
		}
	}
	if c.FPS > 0 {
		doc.Settings.FPS = c.FPS
	}
}

// Range resolves the render range against duration and checks
// 0 <= start < end <= duration.
func (c *Config) Range(duration float64) (start, end float64, err error) {
	start, end = c.Start, c.End
	if end == 0 {
		end = duration
	}
	if err := timeline.ValidateRange(start, end, duration); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// OutputName derives output/<name>_<timestamp><ext> from the timeline file
// name.
func OutputName(dir, source, ext string, now time.Time) string {
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." {
		name = "timeline"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", name, now.Format("2006-01-02_15-04-05"), ext))
}

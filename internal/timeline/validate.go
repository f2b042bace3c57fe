package timeline

import (
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/ivlev/timeline2video/internal/animation"
	"github.com/ivlev/timeline2video/internal/failure"
)

// New validates the graph and returns the read-only Timeline. Every problem
// found is reported; the result is a *multierror.Error whose elements are
// *failure.ConfigError or *failure.ModelError.
func New(settings Settings, layers []*Layer, audio AudioSchedule) (*Timeline, error) {
	var result *multierror.Error

	if err := ValidateSettings(settings); err != nil {
		result = multierror.Append(result, err)
	}

	for li, layer := range layers {
		if layer == nil {
			result = multierror.Append(result, failure.Modelf(li, -1, "nil layer"))
			continue
		}
		result = multierror.Append(result, validateLayer(li, layer, settings.Duration)...)
	}
	result = multierror.Append(result, validateAudio(audio, settings.Duration)...)

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Timeline{Settings: settings, Layers: layers, Audio: audio}, nil
}

// ValidateSettings checks the global properties; each offending field is a
// *failure.ConfigError.
func ValidateSettings(s Settings) error {
	var result *multierror.Error
	if s.Width <= 0 {
		result = multierror.Append(result, failure.Configf("width", "must be > 0, got %d", s.Width))
	}
	if s.Height <= 0 {
		result = multierror.Append(result, failure.Configf("height", "must be > 0, got %d", s.Height))
	}
	if s.FPS <= 0 {
		result = multierror.Append(result, failure.Configf("fps", "must be > 0, got %d", s.FPS))
	}
	if !(s.Duration > 0) || math.IsInf(s.Duration, 0) {
		result = multierror.Append(result, failure.Configf("duration", "must be > 0, got %v", s.Duration))
	}
	return result.ErrorOrNil()
}

// ValidateRange enforces 0 <= start < end <= duration.
func ValidateRange(start, end, duration float64) error {
	if start < 0 || !(end > start) || end > duration {
		return failure.Configf("range", "must satisfy 0 <= start < end <= duration, got start=%v end=%v duration=%v",
			start, end, duration)
	}
	return nil
}

func validateLayer(li int, layer *Layer, duration float64) []error {
	var errs []error

	for ci, clip := range layer.Clips {
		if clip == nil {
			errs = append(errs, failure.Modelf(li, ci, "nil clip"))
			continue
		}
		if clip.Start < 0 || !(clip.End > clip.Start) || clip.End > duration {
			errs = append(errs, failure.Modelf(li, ci,
				"bounds must satisfy 0 <= start < end <= duration, got [%v, %v) with duration %v",
				clip.Start, clip.End, duration))
		}
		if err := validateObject(clip.Object); err != "" {
			errs = append(errs, failure.Modelf(li, ci, "%s", err))
		}
		if !clip.Transform.Anchor.Valid() {
			errs = append(errs, failure.Modelf(li, ci, "anchor (%v, %v) outside [0,1]x[0,1]",
				clip.Transform.Anchor.U, clip.Transform.Anchor.V))
		}
		errs = append(errs, validateKeyframes(li, ci, clip)...)
	}

	// Overlap check on a start-ordered copy; declaration order is kept in
	// the layer itself.
	idx := make([]int, 0, len(layer.Clips))
	for ci, clip := range layer.Clips {
		if clip != nil {
			idx = append(idx, ci)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return layer.Clips[idx[a]].Start < layer.Clips[idx[b]].Start
	})
	// Each clip is checked against the one reaching furthest so far, so a
	// long clip is reported against every short one it covers.
	var reach int
	if len(idx) > 0 {
		reach = idx[0]
	}
	for k := 1; k < len(idx); k++ {
		prev, cur := layer.Clips[reach], layer.Clips[idx[k]]
		if cur.Start < prev.End {
			errs = append(errs, failure.Modelf(li, idx[k], "overlaps clip %d ([%v, %v) vs [%v, %v))",
				reach, cur.Start, cur.End, prev.Start, prev.End))
		}
		if cur.End > prev.End {
			reach = idx[k]
		}
	}
	return errs
}

func validateKeyframes(li, ci int, clip *Clip) []error {
	var errs []error
	check := func(name string, times []float64) {
		for i := 1; i < len(times); i++ {
			if times[i] <= times[i-1] {
				errs = append(errs, failure.Modelf(li, ci, "%s keyframe %d: times must be strictly increasing", name, i))
				return
			}
		}
	}
	tr := clip.Transform
	check("position", keyTimes(tr.Position.Keyframes()))
	check("scale", keyTimes(tr.Scale.Keyframes()))
	check("rotation", keyTimes(tr.Rotation.Keyframes()))
	check("opacity", keyTimes(tr.Opacity.Keyframes()))
	return errs
}

func keyTimes[T animation.Value](kfs []animation.Keyframe[T]) []float64 {
	times := make([]float64, len(kfs))
	for i, kf := range kfs {
		times[i] = kf.Time
	}
	return times
}

func validateObject(o Object) string {
	if o == nil {
		return "clip has no object"
	}
	if s, ok := o.(Sprite); ok && s.Raster() == nil {
		return o.Kind().String() + " object has no pixel source"
	}
	w, h := o.Size()
	if !(w > 0) || !(h > 0) {
		return o.Kind().String() + " object has an empty size"
	}
	return ""
}

func validateAudio(a AudioSchedule, duration float64) []error {
	var errs []error
	for i, m := range a.Music {
		if m.File == "" {
			errs = append(errs, failure.Modelf(-1, -1, "music %d: no file", i))
		}
		if m.Start < 0 || !(m.End > m.Start) || m.End > duration {
			errs = append(errs, failure.Modelf(-1, -1, "music %d: bounds must satisfy 0 <= start < end <= duration, got [%v, %v)",
				i, m.Start, m.End))
		}
		if m.Volume < 0 {
			errs = append(errs, failure.Modelf(-1, -1, "music %d: volume must be >= 0, got %v", i, m.Volume))
		}
	}
	for i, s := range a.Sfx {
		if s.File == "" {
			errs = append(errs, failure.Modelf(-1, -1, "sfx %d: no file", i))
		}
		if s.Time < 0 || s.Time >= duration {
			errs = append(errs, failure.Modelf(-1, -1, "sfx %d: time %v outside [0, %v)", i, s.Time, duration))
		}
		if s.Volume < 0 {
			errs = append(errs, failure.Modelf(-1, -1, "sfx %d: volume must be >= 0, got %v", i, s.Volume))
		}
	}
	return errs
}

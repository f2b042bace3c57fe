package scenario

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/ivlev/timeline2video/internal/analyzer"
	"github.com/ivlev/timeline2video/internal/animation"
	"github.com/ivlev/timeline2video/internal/effects"
	"github.com/ivlev/timeline2video/internal/failure"
	"github.com/ivlev/timeline2video/internal/source"
	"github.com/ivlev/timeline2video/internal/timeline"
)

const (
	defaultFontSize  = 48
	defaultQRSize    = 256
	defaultThickness = 2
)

var placeholderColor = color.NRGBA{R: 40, G: 40, B: 40, A: 255}

// Build decodes every asset the document refers to and returns the
// validated timeline. All problems found are reported together as a
// *multierror.Error of typed failures.
func Build(doc *Document, dec source.Decoder, logger hclog.Logger) (*timeline.Timeline, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	b := &builder{doc: doc, dec: dec, logger: logger.Named("scenario")}

	settings := timeline.Settings{
		Width:      doc.Settings.Width,
		Height:     doc.Settings.Height,
		FPS:        doc.Settings.FPS,
		Duration:   doc.Settings.Duration,
		Background: timeline.Black,
	}
	if doc.Settings.Background != "" {
		bg, err := timeline.ParseColor(doc.Settings.Background)
		if err != nil {
			b.fail(failure.Configf("background", "%v", err))
		}
		settings.Background = bg
	}

	layers := make([]*timeline.Layer, len(doc.Layers))
	clips := 0
	for li, ld := range doc.Layers {
		layer := &timeline.Layer{Name: ld.Name}
		for ci, cd := range ld.Clips {
			if clip := b.clip(li, ci, cd); clip != nil {
				layer.Clips = append(layer.Clips, clip)
				clips++
			}
		}
		layers[li] = layer
	}
	sched := b.audio(settings.Duration)

	if err := b.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	tl, err := timeline.New(settings, layers, sched)
	if err != nil {
		return nil, err
	}

	b.logger.Info("timeline loaded",
		"size", fmt.Sprintf("%dx%d", tl.Width, tl.Height),
		"fps", tl.FPS,
		"duration", tl.Duration,
		"layers", len(tl.Layers),
		"clips", clips,
		"music", len(sched.Music),
		"sfx", len(sched.Sfx))
	return tl, nil
}

type builder struct {
	doc    *Document
	dec    source.Decoder
	logger hclog.Logger
	errs   *multierror.Error
}

func (b *builder) fail(err error) {
	b.errs = multierror.Append(b.errs, err)
}

func (b *builder) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || b.doc.Dir == "" {
		return path
	}
	return filepath.Join(b.doc.Dir, path)
}

func (b *builder) clip(li, ci int, cd ClipDoc) *timeline.Clip {
	modelErr := func(format string, args ...interface{}) {
		b.fail(failure.Modelf(li, ci, format, args...))
	}

	obj, err := b.object(cd.Object)
	if err != nil {
		var assetErr *failure.AssetError
		if errors.As(err, &assetErr) {
			b.fail(err)
		} else {
			modelErr("%s object: %v", cd.Object.Type, err)
		}
		return nil
	}

	spec := animation.Identity()
	if spec.Anchor, err = cd.Anchor.resolve(); err != nil {
		modelErr("%v", err)
	}
	if cd.Position != nil {
		if spec.Position, err = cd.Position.channel(); err != nil {
			modelErr("position: %v", err)
		}
	}
	if cd.Scale != nil {
		if spec.Scale, err = cd.Scale.channel(); err != nil {
			modelErr("scale: %v", err)
		}
	}
	if cd.Rotation != nil {
		if spec.Rotation, err = cd.Rotation.channel(); err != nil {
			modelErr("rotation: %v", err)
		}
	}
	if cd.Opacity != nil {
		if spec.Opacity, err = cd.Opacity.channel(); err != nil {
			modelErr("opacity: %v", err)
		}
	}

	length := cd.End - cd.Start
	if cd.Fade != nil && length > 0 {
		if err := (effects.Fade{In: cd.Fade.In, Out: cd.Fade.Out}).Apply(&spec, length); err != nil {
			modelErr("%v", err)
		}
	}
	if cd.Zoom != nil && length > 0 {
		if err := b.zoom(li, ci, cd.Zoom, obj, &spec, length); err != nil {
			modelErr("%v", err)
		}
	}

	b.logger.Trace("clip built", "layer", li, "clip", ci, "kind", obj.Kind(), "start", cd.Start, "end", cd.End)
	return &timeline.Clip{
		Name:      cd.Name,
		Start:     cd.Start,
		End:       cd.End,
		Object:    obj,
		Transform: spec,
	}
}

// zoom applies a zoom move. The "tour" mode visits the blocks a detector
// finds on a raster object and falls back to a center zoom when it finds
// none.
func (b *builder) zoom(li, ci int, zd *ZoomDoc, obj timeline.Object, spec *animation.TransformSpec, length float64) error {
	w, h := obj.Size()
	mode := strings.ToLower(strings.TrimSpace(zd.Mode))
	if mode == effects.TourMode {
		sprite, ok := obj.(timeline.Sprite)
		if !ok || sprite.Raster() == nil {
			return fmt.Errorf("zoom: tour needs a raster object, got %s", obj.Kind())
		}
		detector, err := analyzer.NewDetector(zd.Detector)
		if err != nil {
			return fmt.Errorf("zoom: %w", err)
		}
		raster := sprite.Raster()
		found := detector.Detect(raster)
		if len(found) > 0 {
			rects := make([]image.Rectangle, len(found))
			for i, blk := range found {
				rects[i] = blk.Rect.Sub(raster.Bounds().Min)
			}
			b.logger.Debug("tour blocks detected", "layer", li, "clip", ci, "blocks", len(rects))
			tour := effects.NewTour(rects, float64(b.doc.Settings.Width), float64(b.doc.Settings.Height))
			return tour.Apply(spec, w, h, length)
		}
		b.logger.Debug("no blocks detected, zooming to center", "layer", li, "clip", ci)
		mode = "center"
	}
	seed := int64(li)<<32 | int64(ci)
	z := effects.Zoom{Mode: mode, Speed: zd.Speed, Outro: zd.Outro}
	return z.Apply(spec, w, h, length, seed)
}

func (b *builder) object(od ObjectDoc) (timeline.Object, error) {
	switch strings.ToLower(od.Type) {
	case "image":
		return b.image(od)
	case "circle":
		c, err := colorOr(od.Color, timeline.White)
		if err != nil {
			return nil, err
		}
		return &timeline.Circle{Radius: od.Radius, Color: c}, nil
	case "rect":
		c, err := colorOr(od.Color, timeline.White)
		if err != nil {
			return nil, err
		}
		return &timeline.Rect{Width: od.Width, Height: od.Height, Color: c}, nil
	case "line":
		return line(od)
	case "text":
		return text(od)
	case "qrcode", "qr":
		return qr(od)
	case "video":
		c, err := colorOr(od.Color, placeholderColor)
		if err != nil {
			return nil, err
		}
		return &timeline.VideoPlaceholder{Path: b.resolve(od.Path), Width: od.Width, Height: od.Height, Color: c}, nil
	case "":
		return nil, fmt.Errorf("missing type")
	}
	return nil, fmt.Errorf("unknown type %q", od.Type)
}

func (b *builder) image(od ObjectDoc) (timeline.Object, error) {
	if od.Path == "" {
		return nil, fmt.Errorf("missing path")
	}
	fit, err := source.ParseFit(od.Fit)
	if err != nil {
		return nil, err
	}
	ref := b.resolve(od.Path)
	pixels, err := b.dec.DecodeImage(ref)
	if err != nil {
		return nil, err
	}

	boxW, boxH := int(od.Width), int(od.Height)
	if fit != source.FitNone && boxW == 0 && boxH == 0 {
		boxW, boxH = b.doc.Settings.Width, b.doc.Settings.Height
	}
	w, h := source.FitSize(pixels.Bounds().Dx(), pixels.Bounds().Dy(), boxW, boxH, fit)
	pixels = source.Resize(pixels, w, h)

	path, page, _ := source.ParseImageRef(ref)
	return &timeline.Image{Path: path, Page: page, Pixels: pixels}, nil
}

func line(od ObjectDoc) (timeline.Object, error) {
	from, err := vec2(od.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := vec2(od.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	c, err := colorOr(od.Color, timeline.White)
	if err != nil {
		return nil, err
	}
	thickness := od.Thickness
	if thickness == 0 {
		thickness = defaultThickness
	}
	if thickness < 0 {
		return nil, fmt.Errorf("thickness must be positive, got %v", thickness)
	}
	// Object-local coordinates are y-down.
	return &timeline.Line{
		From:      animation.Vec2{X: from.X, Y: -from.Y},
		To:        animation.Vec2{X: to.X, Y: -to.Y},
		Thickness: thickness,
		Color:     c,
	}, nil
}

func text(od ObjectDoc) (timeline.Object, error) {
	c, err := colorOr(od.Color, timeline.White)
	if err != nil {
		return nil, err
	}
	align, err := source.ParseAlign(od.Align)
	if err != nil {
		return nil, err
	}
	size := od.FontSize
	if size == 0 {
		size = defaultFontSize
	}
	pixels, err := source.RasterizeText(source.TextStyle{
		Content:     od.Text,
		Size:        size,
		Color:       c,
		Bold:        od.Bold,
		Align:       align,
		LineSpacing: od.LineSpacing,
	})
	if err != nil {
		return nil, err
	}
	return &timeline.Text{Content: od.Text, FontSize: size, Color: c, Pixels: pixels}, nil
}

func qr(od ObjectDoc) (timeline.Object, error) {
	fg, err := colorOr(od.Color, timeline.Black)
	if err != nil {
		return nil, err
	}
	bg, err := colorOr(od.Background, timeline.White)
	if err != nil {
		return nil, err
	}
	level, err := source.ParseRecoveryLevel(od.Level)
	if err != nil {
		return nil, err
	}
	size := od.Size
	if size == 0 {
		size = defaultQRSize
	}
	pixels, err := source.RasterizeQR(od.Content, size, level, fg, bg)
	if err != nil {
		return nil, err
	}
	return &timeline.QRCode{Content: od.Content, Pixels: pixels}, nil
}

func (b *builder) audio(duration float64) timeline.AudioSchedule {
	var sched timeline.AudioSchedule

	for i, md := range b.doc.Music {
		track := timeline.MusicTrack{
			File:   b.resolve(md.File),
			Start:  md.Start,
			End:    duration,
			Loop:   md.Loop,
			Volume: 1,
		}
		if md.End != nil {
			track.End = *md.End
		}
		if md.Volume != nil {
			track.Volume = *md.Volume
		}
		if track.File == "" {
			b.fail(failure.Modelf(-1, -1, "music %d: no file", i))
			continue
		}
		dur, err := b.dec.DecodeAudioDuration(track.File)
		if err != nil {
			b.fail(err)
			continue
		}
		track.Duration = dur
		sched.Music = append(sched.Music, track)
	}

	for i, sd := range b.doc.Sfx {
		ev := timeline.SfxEvent{File: b.resolve(sd.File), Time: sd.Time, Volume: 1}
		if sd.Volume != nil {
			ev.Volume = *sd.Volume
		}
		if ev.File == "" {
			b.fail(failure.Modelf(-1, -1, "sfx %d: no file", i))
			continue
		}
		dur, err := b.dec.DecodeAudioDuration(ev.File)
		if err != nil {
			b.fail(err)
			continue
		}
		ev.Duration = dur
		sched.Sfx = append(sched.Sfx, ev)
	}
	return sched
}

func (v *Vec2Track) channel() (animation.Channel[animation.Vec2], error) {
	if len(v.Keyframes) == 0 {
		val, err := vec2(v.Value)
		if err != nil {
			return animation.Channel[animation.Vec2]{}, err
		}
		return animation.Constant(val), nil
	}
	kfs := make([]animation.Keyframe[animation.Vec2], len(v.Keyframes))
	for i, k := range v.Keyframes {
		val, err := vec2(k.Value)
		if err != nil {
			return animation.Channel[animation.Vec2]{}, fmt.Errorf("keyframe %d: %w", i, err)
		}
		e, err := animation.ParseEasing(k.Easing)
		if err != nil {
			return animation.Channel[animation.Vec2]{}, fmt.Errorf("keyframe %d: %w", i, err)
		}
		kfs[i] = animation.Keyframe[animation.Vec2]{Time: k.Time, Value: val, Easing: e}
	}
	return animation.Keyframed(kfs...)
}

func (s *ScalarTrack) channel() (animation.Channel[float64], error) {
	if len(s.Keyframes) == 0 {
		if s.Value == nil {
			return animation.Channel[float64]{}, fmt.Errorf("needs a value or keyframes")
		}
		return animation.Constant(*s.Value), nil
	}
	kfs := make([]animation.Keyframe[float64], len(s.Keyframes))
	for i, k := range s.Keyframes {
		e, err := animation.ParseEasing(k.Easing)
		if err != nil {
			return animation.Channel[float64]{}, fmt.Errorf("keyframe %d: %w", i, err)
		}
		kfs[i] = animation.Keyframe[float64]{Time: k.Time, Value: k.Value, Easing: e}
	}
	return animation.Keyframed(kfs...)
}

func vec2(v []float64) (animation.Vec2, error) {
	switch len(v) {
	case 1:
		return animation.Vec2{X: v[0], Y: v[0]}, nil
	case 2:
		return animation.Vec2{X: v[0], Y: v[1]}, nil
	}
	return animation.Vec2{}, fmt.Errorf("want [x, y], got %d values", len(v))
}

func colorOr(s string, def color.NRGBA) (color.NRGBA, error) {
	if s == "" {
		return def, nil
	}
	return timeline.ParseColor(s)
}

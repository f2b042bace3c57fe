// Package scenario reads and writes timeline description files and builds
// them into a validated timeline. The same document can be written in YAML
// or HCL.
package scenario

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/timeline2video/internal/animation"
)

// Document is the on-disk form of a timeline.
type Document struct {
	Version  string      `yaml:"version,omitempty" hcl:"version,optional"`
	Settings SettingsDoc `yaml:"settings" hcl:"settings,block"`
	Layers   []LayerDoc  `yaml:"layers,omitempty" hcl:"layer,block"`
	Music    []MusicDoc  `yaml:"music,omitempty" hcl:"music,block"`
	Sfx      []SfxDoc    `yaml:"sfx,omitempty" hcl:"sfx,block"`

	// Dir resolves relative asset paths. Read sets it to the file's
	// directory.
	Dir string `yaml:"-"`
}

type SettingsDoc struct {
	Width      int     `yaml:"width" hcl:"width"`
	Height     int     `yaml:"height" hcl:"height"`
	FPS        int     `yaml:"fps" hcl:"fps"`
	Duration   float64 `yaml:"duration" hcl:"duration"`
	Background string  `yaml:"background,omitempty" hcl:"background,optional"`
}

// LayerDoc is drawn above every layer listed before it.
type LayerDoc struct {
	Name  string    `yaml:"name,omitempty" hcl:"name,label"`
	Clips []ClipDoc `yaml:"clips,omitempty" hcl:"clip,block"`
}

type ClipDoc struct {
	Name   string    `yaml:"name,omitempty" hcl:"name,label"`
	Start  float64   `yaml:"start" hcl:"start"`
	End    float64   `yaml:"end" hcl:"end"`
	Object ObjectDoc `yaml:"object" hcl:"object,block"`

	Anchor   AnchorDoc    `yaml:"anchor,omitempty"`
	Position *Vec2Track   `yaml:"position,omitempty" hcl:"position,block"`
	Scale    *Vec2Track   `yaml:"scale,omitempty" hcl:"scale,block"`
	Rotation *ScalarTrack `yaml:"rotation,omitempty" hcl:"rotation,block"`
	Opacity  *ScalarTrack `yaml:"opacity,omitempty" hcl:"opacity,block"`

	Zoom *ZoomDoc `yaml:"zoom,omitempty" hcl:"zoom,block"`
	Fade *FadeDoc `yaml:"fade,omitempty" hcl:"fade,block"`

	// HCL attributes have a single type, so the two anchor forms get one
	// attribute each there. decodeHCL folds them into Anchor.
	AnchorPreset string    `yaml:"-" hcl:"anchor,optional"`
	AnchorUV     []float64 `yaml:"-" hcl:"anchor_uv,optional"`
}

// AnchorDoc is a preset name ("top-left") or a normalized [u, v] point,
// where [0, 0] is the top-left corner and [1, 1] the bottom-right one.
type AnchorDoc struct {
	Preset string
	UV     []float64
}

func (a AnchorDoc) IsZero() bool {
	return a.Preset == "" && a.UV == nil
}

// resolve returns the anchor as given. Range checks are left to
// timeline.New.
func (a AnchorDoc) resolve() (animation.Anchor, error) {
	if a.UV != nil {
		if len(a.UV) != 2 {
			return animation.Anchor{}, fmt.Errorf("anchor: want [u, v], got %d values", len(a.UV))
		}
		return animation.Anchor{U: a.UV[0], V: a.UV[1]}, nil
	}
	return animation.ParseAnchor(a.Preset)
}

// ObjectDoc holds the union of every object variant's fields; Type selects
// which ones apply.
type ObjectDoc struct {
	Type string `yaml:"type" hcl:"type,label"`

	// image, video
	Path string `yaml:"path,omitempty" hcl:"path,optional"`
	Fit  string `yaml:"fit,omitempty" hcl:"fit,optional"`

	// circle
	Radius float64 `yaml:"radius,omitempty" hcl:"radius,optional"`

	// rect, video, image resize
	Width  float64 `yaml:"width,omitempty" hcl:"width,optional"`
	Height float64 `yaml:"height,omitempty" hcl:"height,optional"`

	// line
	From      []float64 `yaml:"from,omitempty,flow" hcl:"from,optional"`
	To        []float64 `yaml:"to,omitempty,flow" hcl:"to,optional"`
	Thickness float64   `yaml:"thickness,omitempty" hcl:"thickness,optional"`

	// text
	Text        string  `yaml:"text,omitempty" hcl:"text,optional"`
	FontSize    float64 `yaml:"font_size,omitempty" hcl:"font_size,optional"`
	Bold        bool    `yaml:"bold,omitempty" hcl:"bold,optional"`
	Align       string  `yaml:"align,omitempty" hcl:"align,optional"`
	LineSpacing float64 `yaml:"line_spacing,omitempty" hcl:"line_spacing,optional"`

	// qrcode
	Content    string `yaml:"content,omitempty" hcl:"content,optional"`
	Size       int    `yaml:"size,omitempty" hcl:"size,optional"`
	Level      string `yaml:"level,omitempty" hcl:"level,optional"`
	Background string `yaml:"background,omitempty" hcl:"background,optional"`

	Color string `yaml:"color,omitempty" hcl:"color,optional"`
}

// Vec2Track is a constant [x, y] or a keyframe list. In YAML a bare
// sequence is accepted as the constant. A single element [v] means [v, v].
type Vec2Track struct {
	Value     []float64 `yaml:"value,omitempty,flow" hcl:"value,optional"`
	Keyframes []Vec2Key `yaml:"keyframes,omitempty" hcl:"key,block"`
}

type Vec2Key struct {
	Time   float64   `yaml:"time" hcl:"time"`
	Value  []float64 `yaml:"value,flow" hcl:"value"`
	Easing string    `yaml:"easing,omitempty" hcl:"easing,optional"`
}

// ScalarTrack is a constant or a keyframe list. In YAML a bare number is
// accepted as the constant.
type ScalarTrack struct {
	Value     *float64    `yaml:"value,omitempty" hcl:"value,optional"`
	Keyframes []ScalarKey `yaml:"keyframes,omitempty" hcl:"key,block"`
}

type ScalarKey struct {
	Time   float64 `yaml:"time" hcl:"time"`
	Value  float64 `yaml:"value" hcl:"value"`
	Easing string  `yaml:"easing,omitempty" hcl:"easing,optional"`
}

// ZoomDoc is a camera move over the clip. Mode "tour" visits the blocks
// found by Detector ("contrast" when empty).
type ZoomDoc struct {
	Mode     string  `yaml:"mode,omitempty" hcl:"mode,optional"`
	Speed    float64 `yaml:"speed,omitempty" hcl:"speed,optional"`
	Outro    float64 `yaml:"outro,omitempty" hcl:"outro,optional"`
	Detector string  `yaml:"detector,omitempty" hcl:"detector,optional"`
}

type FadeDoc struct {
	In  float64 `yaml:"in,omitempty" hcl:"in,optional"`
	Out float64 `yaml:"out,omitempty" hcl:"out,optional"`
}

// MusicDoc plays File from Start to End (the timeline end when omitted).
type MusicDoc struct {
	File   string   `yaml:"file" hcl:"file"`
	Start  float64  `yaml:"start,omitempty" hcl:"start,optional"`
	End    *float64 `yaml:"end,omitempty" hcl:"end,optional"`
	Loop   bool     `yaml:"loop,omitempty" hcl:"loop,optional"`
	Volume *float64 `yaml:"volume,omitempty" hcl:"volume,optional"`
}

type SfxDoc struct {
	File   string   `yaml:"file" hcl:"file"`
	Time   float64  `yaml:"time" hcl:"time"`
	Volume *float64 `yaml:"volume,omitempty" hcl:"volume,optional"`
}

func (a *AnchorDoc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		a.UV = nil
		return node.Decode(&a.Preset)
	case yaml.SequenceNode:
		a.Preset = ""
		return node.Decode(&a.UV)
	}
	return fmt.Errorf("line %d: anchor must be a preset name or [u, v]", node.Line)
}

func (a AnchorDoc) MarshalYAML() (interface{}, error) {
	if a.UV != nil {
		return flowSeq(a.UV), nil
	}
	return a.Preset, nil
}

func (v *Vec2Track) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		v.Keyframes = nil
		return node.Decode(&v.Value)
	}
	type plain Vec2Track
	return node.Decode((*plain)(v))
}

func (v Vec2Track) MarshalYAML() (interface{}, error) {
	if len(v.Keyframes) == 0 && v.Value != nil {
		return flowSeq(v.Value), nil
	}
	type plain Vec2Track
	return plain(v), nil
}

func (s *ScalarTrack) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		s.Value, s.Keyframes = &f, nil
		return nil
	}
	type plain ScalarTrack
	return node.Decode((*plain)(s))
}

func (s ScalarTrack) MarshalYAML() (interface{}, error) {
	if len(s.Keyframes) == 0 && s.Value != nil {
		return *s.Value, nil
	}
	type plain ScalarTrack
	return plain(s), nil
}

func flowSeq(vals []float64) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range vals {
		n.Content = append(n.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(v, 'g', -1, 64),
		})
	}
	return n
}

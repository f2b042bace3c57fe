// Package failure defines the error taxonomy shared by the timeline engine.
//
// Config and model errors are reported before any frame is sampled. Asset
// errors carry the offending path. Sink errors are raised by the external
// encoder, mixer or display and terminate the current render.
package failure

import (
	"errors"
	"fmt"
)

var (
	ErrAssetNotFound     = errors.New("asset not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrUndecodable       = errors.New("undecodable asset")
)

// ConfigError reports invalid width/height/fps/duration or an invalid
// start/end range.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Configf builds a ConfigError for field.
func Configf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AssetError reports a missing or undecodable file referenced by an object
// or an audio schedule entry.
type AssetError struct {
	Path  string
	Cause error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.Path, e.Cause)
}

func (e *AssetError) Unwrap() error {
	return e.Cause
}

// Asset wraps cause into an AssetError for path.
func Asset(path string, cause error) *AssetError {
	return &AssetError{Path: path, Cause: cause}
}

// ModelError reports a structural problem in the timeline graph. Layer and
// Clip are -1 when the error is not tied to one.
type ModelError struct {
	Layer   int
	Clip    int
	Message string
}

func (e *ModelError) Error() string {
	switch {
	case e.Layer >= 0 && e.Clip >= 0:
		return fmt.Sprintf("timeline: layer %d clip %d: %s", e.Layer, e.Clip, e.Message)
	case e.Layer >= 0:
		return fmt.Sprintf("timeline: layer %d: %s", e.Layer, e.Message)
	default:
		return "timeline: " + e.Message
	}
}

// Modelf builds a ModelError.
func Modelf(layer, clip int, format string, args ...interface{}) *ModelError {
	return &ModelError{Layer: layer, Clip: clip, Message: fmt.Sprintf(format, args...)}
}

// SinkError reports a frame, audio mix or display rejected by an external
// collaborator. Frame is -1 for audio sinks.
type SinkError struct {
	Sink  string
	Frame int
	Cause error
}

func (e *SinkError) Error() string {
	if e.Frame >= 0 {
		return fmt.Sprintf("sink %s: frame %d: %v", e.Sink, e.Frame, e.Cause)
	}
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Cause)
}

func (e *SinkError) Unwrap() error {
	return e.Cause
}

// Sink wraps cause into a SinkError.
func Sink(sink string, frame int, cause error) *SinkError {
	return &SinkError{Sink: sink, Frame: frame, Cause: cause}
}

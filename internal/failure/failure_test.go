package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("load: %w", Asset("logo.png", ErrAssetNotFound))

	var assetErr *AssetError
	require.True(t, errors.As(err, &assetErr))
	assert.Equal(t, "logo.png", assetErr.Path)
	assert.True(t, errors.Is(err, ErrAssetNotFound))
	assert.False(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestModelErrorMessage(t *testing.T) {
	tests := []struct {
		err  *ModelError
		want string
	}{
		{Modelf(1, 2, "overlap"), "timeline: layer 1 clip 2: overlap"},
		{Modelf(3, -1, "empty"), "timeline: layer 3: empty"},
		{Modelf(-1, -1, "bad"), "timeline: bad"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestSinkError(t *testing.T) {
	cause := errors.New("broken pipe")
	err := Sink("ffmpeg", 12, cause)
	assert.Equal(t, "sink ffmpeg: frame 12: broken pipe", err.Error())
	assert.ErrorIs(t, err, cause)

	audioErr := Sink("mixer", -1, cause)
	assert.Equal(t, "sink mixer: broken pipe", audioErr.Error())
}

func TestConfigf(t *testing.T) {
	err := Configf("fps", "must be > 0, got %d", 0)
	assert.Equal(t, "config: fps: must be > 0, got 0", err.Error())
}

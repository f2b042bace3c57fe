package video

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/timeline2video/internal/audio"
	"github.com/ivlev/timeline2video/internal/engine"
	"github.com/ivlev/timeline2video/internal/timeline"
)

func TestEncodeArgs(t *testing.T) {
	opts := EncodeOptions{Output: "out.mp4", Width: 1280, Height: 720, FPS: 30, Encoder: "libx264", Quality: 23}

	assert.Equal(t, []string{
		"-y", "-f", "rawvideo", "-pixel_format", "rgba", "-video_size", "1280x720", "-framerate", "30", "-i", "-",
		"-pix_fmt", "yuv420p", "-c:v", "libx264", "-crf", "23", "-preset", "medium", "out.mp4",
	}, encodeArgs(opts, ""))

	opts.Encoder, opts.Quality = "h264_videotoolbox", 75
	assert.Equal(t, []string{
		"-y", "-f", "rawvideo", "-pixel_format", "rgba", "-video_size", "1280x720", "-framerate", "30", "-i", "-",
		"-i", "mix.m4a", "-map", "0:v", "-map", "1:a", "-c:a", "aac", "-shortest",
		"-pix_fmt", "yuv420p", "-c:v", "h264_videotoolbox", "-b:v", "7500k", "out.mp4",
	}, encodeArgs(opts, "mix.m4a"))
}

func TestMixArgs(t *testing.T) {
	entries := []audio.Entry{
		{Kind: audio.Music, File: "bed.mp3", Onset: 0, Offset: 1.5, Length: 10, Volume: 0.5, Loop: true},
		{Kind: audio.Sfx, File: "empty.wav", Onset: 2, Length: 0, Volume: 1},
		{Kind: audio.Sfx, File: "click.wav", Onset: 2.25, Length: 0.3, Volume: 1},
	}
	args := mixArgs(entries, 10, "mix.m4a")
	assert.Equal(t, []string{
		"-y",
		"-stream_loop", "-1", "-ss", "1.500000", "-i", "bed.mp3",
		"-i", "click.wav",
		"-filter_complex",
		"[0:a]atrim=0:10.000000,asetpts=PTS-STARTPTS,volume=0.500000,adelay=0:all=1[a0];" +
			"[1:a]atrim=0:0.300000,asetpts=PTS-STARTPTS,volume=1.000000,adelay=2250:all=1[a1];" +
			"[a0][a1]amix=inputs=2:duration=longest:normalize=0,apad=whole_dur=10.000000,atrim=0:10.000000[aout]",
		"-map", "[aout]", "-c:a", "aac", "mix.m4a",
	}, args)

	assert.Nil(t, mixArgs(nil, 10, "mix.m4a"))
	assert.Nil(t, mixArgs(entries[1:2], 10, "mix.m4a"))
}

func TestMixerWithoutEntriesWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "audio", "mix.m4a")
	m := &Mixer{Output: out}
	require.NoError(t, m.Mix(context.Background(), nil, 5))
	assert.False(t, m.Written())
	assert.NoFileExists(t, out)

	enc := NewFFmpegEncoder(EncodeOptions{Output: "unused.mp4"}, nil)
	require.NoError(t, enc.Mix(context.Background(), nil, 5))
	assert.NoError(t, enc.Close())
}

func frame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestWriteRawRGBA(t *testing.T) {
	full := frame(4, 3, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	var buf bytes.Buffer
	require.NoError(t, writeRawRGBA(&buf, full))
	assert.Equal(t, full.Pix, buf.Bytes())

	// A sub-image has a wider stride; only its own rows are written.
	sub := full.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	buf.Reset()
	require.NoError(t, writeRawRGBA(&buf, sub))
	assert.Len(t, buf.Bytes(), 2*2*4)
}

func TestImageSequence(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}

	t.Run("png", func(t *testing.T) {
		seq := &ImageSequence{Dir: filepath.Join(t.TempDir(), "frames"), Format: "png"}
		for i := 0; i < 3; i++ {
			sig, err := seq.Accept(context.Background(), i, frame(6, 4, red))
			require.NoError(t, err)
			assert.Equal(t, engine.Continue, sig)
		}
		assert.Equal(t, "frame_000002.png", filepath.Base(seq.FramePath(2)))

		f, err := os.Open(seq.FramePath(1))
		require.NoError(t, err)
		defer f.Close()
		img, err := png.Decode(f)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 6, 4), img.Bounds())
		r, g, b, a := img.At(3, 2).RGBA()
		assert.Equal(t, [4]uint32{0xffff, 0, 0, 0xffff}, [4]uint32{r, g, b, a})
	})

	t.Run("webp", func(t *testing.T) {
		seq := &ImageSequence{Dir: t.TempDir(), Format: "webp", Limit: 2}
		sig, err := seq.Accept(context.Background(), 0, frame(6, 4, red))
		require.NoError(t, err)
		assert.Equal(t, engine.Continue, sig)
		sig, err = seq.Accept(context.Background(), 1, frame(6, 4, red))
		require.NoError(t, err)
		assert.Equal(t, engine.Stop, sig)

		data, err := os.ReadFile(seq.FramePath(1))
		require.NoError(t, err)
		img, err := webp.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		r, g, b, a := img.At(0, 0).RGBA()
		assert.Equal(t, [4]uint32{0xffff, 0, 0, 0xffff}, [4]uint32{r, g, b, a})
	})
}

func TestImageSequenceWithRender(t *testing.T) {
	tl, err := timeline.New(timeline.Settings{
		Width: 8, Height: 8, FPS: 4, Duration: 1, Background: color.NRGBA{B: 255, A: 255},
	}, nil, timeline.AudioSchedule{})
	require.NoError(t, err)

	seq := &ImageSequence{Dir: t.TempDir()}
	stats, err := engine.Render(context.Background(), tl, seq, nil, engine.RenderOptions{Start: 0, End: 1, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Delivered)
	for i := 0; i < 4; i++ {
		assert.FileExists(t, seq.FramePath(i))
	}
	assert.NoFileExists(t, seq.FramePath(4))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": "png", "png": "png", "webp": "webp"} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("gif")
	assert.Error(t, err)
}

func TestFFplayArgs(t *testing.T) {
	assert.Equal(t, []string{
		"-loglevel", "error", "-f", "rawvideo", "-pixel_format", "rgba", "-video_size", "320x240",
		"-framerate", "25", "-window_title", "timeline2video", "-fflags", "nobuffer", "-i", "-",
	}, displayArgs(320, 240, 25, ""))

	tr := audio.ActiveTrack{
		Index:  0,
		Track:  timeline.MusicTrack{File: "bed.mp3", Loop: true, Volume: 0.35},
		Offset: 2,
	}
	assert.Equal(t, []string{"-nodisp", "-loglevel", "quiet", "-autoexit", "-loop", "0", "-ss", "2.000000", "-volume", "35", "bed.mp3"},
		musicArgs(tr))
	assert.Equal(t, []string{"-nodisp", "-loglevel", "quiet", "-autoexit", "-volume", "100", "click.wav"},
		sfxArgs("click.wav", 1.7))
	assert.Equal(t, "0", volume(-1))
}

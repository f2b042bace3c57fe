package source

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/timeline2video/internal/failure"
)

func checker() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 30, A: 128})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 5, G: 250, B: 60, A: 255})
			}
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func assertAssetErr(t *testing.T, err error, sentinel error) {
	t.Helper()
	require.Error(t, err)
	var ae *failure.AssetError
	require.True(t, errors.As(err, &ae), "want AssetError, got %T: %v", err, err)
	assert.True(t, errors.Is(err, sentinel), "want %v, got %v", sentinel, err)
}

func TestParseImageRef(t *testing.T) {
	tests := []struct {
		ref     string
		path    string
		page    int
		wantErr bool
	}{
		{"a.png", "a.png", 0, false},
		{"deck.pdf", "deck.pdf", 0, false},
		{"deck.pdf#1", "deck.pdf", 0, false},
		{"dir/deck.pdf#12", "dir/deck.pdf", 11, false},
		{"deck.pdf#0", "", 0, true},
		{"deck.pdf#x", "", 0, true},
		{"deck.PDF#2", "deck.PDF", 1, false},
		{"deck.PDF#x", "", 0, true},
		{"photo#1.png", "photo#1.png", 0, false},
		{"a#b.png", "a#b.png", 0, false},
		{"shots#2/frame.png", "shots#2/frame.png", 0, false},
	}
	for _, tt := range tests {
		path, page, err := ParseImageRef(tt.ref)
		if tt.wantErr {
			assert.Error(t, err, tt.ref)
			continue
		}
		require.NoError(t, err, tt.ref)
		assert.Equal(t, tt.path, path, tt.ref)
		assert.Equal(t, tt.page, page, tt.ref)
	}

	assert.Equal(t, "a.png", FormatImageRef("a.png", 0))
	assert.Equal(t, "photo#1.png", FormatImageRef("photo#1.png", 0))
	assert.Equal(t, "deck.pdf#1", FormatImageRef("deck.pdf", 0))
	assert.Equal(t, "deck.pdf#4", FormatImageRef("deck.pdf", 3))
}

func TestDecodeImageWithHashInName(t *testing.T) {
	src := checker()
	path := writePNG(t, t.TempDir(), "photo#1.png", src)

	img, err := NewFileDecoder(0, nil).DecodeImage(path)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, img.Pix)
}

func TestDecodePNGKeepsStraightAlpha(t *testing.T) {
	src := checker()
	path := writePNG(t, t.TempDir(), "checker.png", src)

	d := NewFileDecoder(0, nil)
	img, err := d.DecodeImage(path)
	require.NoError(t, err)
	assert.Equal(t, src.Rect, img.Rect)
	assert.Equal(t, src.Pix, img.Pix)

	again, err := d.DecodeImage(path)
	require.NoError(t, err)
	assert.Same(t, img, again)
}

func TestDecodeWebP(t *testing.T) {
	src := checker()
	path := filepath.Join(t.TempDir(), "checker.webp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, webp.Encode(f, src, &webp.Options{Lossless: true}))
	require.NoError(t, f.Close())

	img, err := NewFileDecoder(0, nil).DecodeImage(path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA{R: 5, G: 250, B: 60, A: 255}, img.NRGBAAt(1, 0))
}

func TestDecodeImageErrors(t *testing.T) {
	dir := t.TempDir()
	d := NewFileDecoder(0, nil)

	_, err := d.DecodeImage(filepath.Join(dir, "missing.png"))
	assertAssetErr(t, err, failure.ErrAssetNotFound)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hi"), 0o644))
	_, err = d.DecodeImage(txt)
	assertAssetErr(t, err, failure.ErrUnsupportedFormat)

	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o644))
	_, err = d.DecodeImage(bad)
	assertAssetErr(t, err, failure.ErrUndecodable)

	good := writePNG(t, dir, "ok.png", checker())
	_, err = d.DecodeImage(good + "#2")
	assertAssetErr(t, err, failure.ErrUnsupportedFormat)

	_, err = d.DecodeImage(dir)
	assertAssetErr(t, err, failure.ErrUnsupportedFormat)
}

func TestDecodeAudioDuration(t *testing.T) {
	dir := t.TempDir()
	song := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(song, []byte("id3"), 0o644))

	d := NewFileDecoder(0, nil)
	d.AudioDuration = func(path string) (float64, error) {
		assert.Equal(t, song, path)
		return 12.5, nil
	}
	dur, err := d.DecodeAudioDuration(song)
	require.NoError(t, err)
	assert.Equal(t, 12.5, dur)

	_, err = d.DecodeAudioDuration(filepath.Join(dir, "none.wav"))
	assertAssetErr(t, err, failure.ErrAssetNotFound)

	d.AudioDuration = func(string) (float64, error) { return 0, errors.New("ffprobe: invalid data") }
	_, err = d.DecodeAudioDuration(song)
	assertAssetErr(t, err, failure.ErrUndecodable)

	clip := filepath.Join(dir, "clip.png")
	require.NoError(t, os.WriteFile(clip, []byte{}, 0o644))
	_, err = d.DecodeAudioDuration(clip)
	assertAssetErr(t, err, failure.ErrUnsupportedFormat)
}

func TestToNRGBAOffsetSource(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 12, 21))
	src.SetRGBA(10, 20, color.RGBA{R: 255, A: 255})
	src.SetRGBA(11, 20, color.RGBA{R: 64, A: 128}) // premultiplied

	out := ToNRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 2, 1), out.Rect)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(0, 0))
	got := out.NRGBAAt(1, 0)
	assert.Equal(t, uint8(128), got.A)
	assert.InDelta(t, 127, int(got.R), 1)

	n := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	assert.Same(t, n, ToNRGBA(n))
}

func TestRasterizeText(t *testing.T) {
	ink := color.NRGBA{R: 250, G: 200, B: 10, A: 255}
	one, err := RasterizeText(TextStyle{Content: "Hello", Size: 24, Color: ink})
	require.NoError(t, err)
	two, err := RasterizeText(TextStyle{Content: "Hello\nworld", Size: 24, Color: ink, Align: AlignCenter})
	require.NoError(t, err)

	assert.Greater(t, one.Bounds().Dx(), 24)
	assert.Greater(t, two.Bounds().Dy(), one.Bounds().Dy())

	var solid, clear int
	for i := 0; i < len(one.Pix); i += 4 {
		switch one.Pix[i+3] {
		case 255:
			solid++
			assert.Equal(t, []uint8{250, 200, 10}, one.Pix[i:i+3])
		case 0:
			clear++
		}
	}
	assert.Positive(t, solid)
	assert.Positive(t, clear)

	bold, err := RasterizeText(TextStyle{Content: "Hello", Size: 24, Color: ink, Bold: true})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bold.Bounds().Dx(), one.Bounds().Dx())

	_, err = RasterizeText(TextStyle{Content: "  ", Size: 24})
	assert.Error(t, err)
	_, err = RasterizeText(TextStyle{Content: "x", Size: 0})
	assert.Error(t, err)
}

func TestParseAlign(t *testing.T) {
	for in, want := range map[string]Align{"": AlignLeft, "Center": AlignCenter, "right": AlignRight} {
		got, err := ParseAlign(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAlign("justify")
	assert.Error(t, err)
}

func TestRasterizeQR(t *testing.T) {
	fg := color.NRGBA{A: 255}
	bg := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	img, err := RasterizeQR("https://example.com", 256, qrcode.Medium, fg, bg)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())
	assert.GreaterOrEqual(t, img.Bounds().Dx(), 256)

	seen := map[color.NRGBA]bool{}
	for y := 0; y < img.Bounds().Dy(); y += 4 {
		for x := 0; x < img.Bounds().Dx(); x += 4 {
			seen[img.NRGBAAt(x, y)] = true
		}
	}
	assert.True(t, seen[fg])
	assert.True(t, seen[bg])

	_, err = RasterizeQR("", 256, qrcode.Medium, fg, bg)
	assert.Error(t, err)

	lvl, err := ParseRecoveryLevel("HIGHEST")
	require.NoError(t, err)
	assert.Equal(t, qrcode.Highest, lvl)
	_, err = ParseRecoveryLevel("max")
	assert.Error(t, err)
}

// Package source decodes the files a timeline refers to: still images, PDF
// pages and audio clips. Everything is decoded up front into straight-alpha
// NRGBA so the compositor never touches the filesystem.
package source

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/hashicorp/go-hclog"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/timeline2video/internal/failure"
	"github.com/ivlev/timeline2video/internal/system"
)

// Decoder turns asset references into pixels and durations. Errors are
// *failure.AssetError.
type Decoder interface {
	DecodeImage(ref string) (*image.NRGBA, error)
	DecodeAudioDuration(path string) (float64, error)
}

const DefaultDPI = 150

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".aac": true, ".flac": true,
}

// FileDecoder decodes assets from the local filesystem. Decoded images are
// cached by reference, so a picture used by several clips is read once.
type FileDecoder struct {
	// DPI used to rasterize PDF pages.
	DPI int
	// AudioDuration reports an audio file's length; defaults to ffprobe.
	AudioDuration func(path string) (float64, error)

	logger hclog.Logger

	mu     sync.Mutex
	images map[string]*image.NRGBA
}

func NewFileDecoder(dpi int, logger hclog.Logger) *FileDecoder {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FileDecoder{
		DPI:           dpi,
		AudioDuration: system.GetAudioDuration,
		logger:        logger.Named("source"),
		images:        make(map[string]*image.NRGBA),
	}
}

// ParseImageRef splits "deck.pdf#3" into the file and a zero-based page
// index. Pages are numbered from 1 in references; a plain path means page 0.
// Only PDF paths take a page suffix, so "photo#1.png" is a file name.
func ParseImageRef(ref string) (path string, page int, err error) {
	i := strings.LastIndexByte(ref, '#')
	if i < 0 || !isPDF(ref[:i]) {
		return ref, 0, nil
	}
	n, err := strconv.Atoi(ref[i+1:])
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("bad page in %q", ref)
	}
	return ref[:i], n - 1, nil
}

// FormatImageRef is the inverse of ParseImageRef.
func FormatImageRef(path string, page int) string {
	if !isPDF(path) {
		return path
	}
	return fmt.Sprintf("%s#%d", path, page+1)
}

func (d *FileDecoder) DecodeImage(ref string) (*image.NRGBA, error) {
	d.mu.Lock()
	img, ok := d.images[ref]
	d.mu.Unlock()
	if ok {
		return img, nil
	}

	path, page, err := ParseImageRef(ref)
	if err != nil {
		return nil, failure.Asset(ref, fmt.Errorf("%w: %v", failure.ErrUnsupportedFormat, err))
	}
	if err := checkExists(path); err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".pdf":
		img, err = d.decodePDFPage(path, page)
	case imageExts[ext]:
		img, err = decodeStill(path)
	default:
		return nil, failure.Asset(path, fmt.Errorf("%w: %q", failure.ErrUnsupportedFormat, ext))
	}
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	d.logger.Debug("image decoded", "ref", ref, "width", b.Dx(), "height", b.Dy())

	d.mu.Lock()
	d.images[ref] = img
	d.mu.Unlock()
	return img, nil
}

func (d *FileDecoder) DecodeAudioDuration(path string) (float64, error) {
	if err := checkExists(path); err != nil {
		return 0, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); !audioExts[ext] {
		return 0, failure.Asset(path, fmt.Errorf("%w: %q", failure.ErrUnsupportedFormat, ext))
	}
	dur, err := d.AudioDuration(path)
	if err != nil {
		return 0, failure.Asset(path, fmt.Errorf("%w: %v", failure.ErrUndecodable, err))
	}
	d.logger.Debug("audio duration read", "path", path, "duration", dur)
	return dur, nil
}

func (d *FileDecoder) decodePDFPage(path string, page int) (*image.NRGBA, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, failure.Asset(path, fmt.Errorf("%w: %v", failure.ErrUndecodable, err))
	}
	defer doc.Close()

	if page >= doc.NumPage() {
		return nil, failure.Asset(FormatImageRef(path, page),
			fmt.Errorf("%w: document has %d pages", failure.ErrAssetNotFound, doc.NumPage()))
	}
	img, err := doc.ImageDPI(page, float64(d.DPI))
	if err != nil {
		return nil, failure.Asset(FormatImageRef(path, page), fmt.Errorf("%w: %v", failure.ErrUndecodable, err))
	}
	return ToNRGBA(img), nil
}

func decodeStill(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, failure.Asset(path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, failure.Asset(path, fmt.Errorf("%w: %v", failure.ErrUndecodable, err))
	}
	return ToNRGBA(img), nil
}

// ToNRGBA returns img as straight-alpha NRGBA anchored at (0,0). An NRGBA
// that already satisfies this is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

func checkExists(path string) error {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return failure.Asset(path, failure.ErrAssetNotFound)
	case err != nil:
		return failure.Asset(path, err)
	case fi.IsDir():
		return failure.Asset(path, fmt.Errorf("%w: is a directory", failure.ErrUnsupportedFormat))
	}
	return nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

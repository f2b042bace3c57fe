package timeline

import (
	"image"
	"image/color"
	"math"

	"github.com/ivlev/timeline2video/internal/animation"
)

// Kind tags an Object variant.
type Kind int

const (
	KindImage Kind = iota
	KindCircle
	KindRect
	KindLine
	KindText
	KindQRCode
	KindVideoPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindCircle:
		return "circle"
	case KindRect:
		return "rect"
	case KindLine:
		return "line"
	case KindText:
		return "text"
	case KindQRCode:
		return "qrcode"
	case KindVideoPlaceholder:
		return "video"
	}
	return "unknown"
}

// Object is the renderable content of a clip. The set of variants is closed;
// the compositor switches on the concrete type once per sampled state.
type Object interface {
	Kind() Kind
	// Size is the unscaled local bounding box in pixels.
	Size() (w, h float64)
	isObject()
}

// Sprite is implemented by variants that carry a pre-rasterized pixel
// source in straight alpha.
type Sprite interface {
	Object
	Raster() *image.NRGBA
}

// Image is a decoded still (PNG/JPEG/WebP/... or one PDF page).
type Image struct {
	Path   string
	Page   int
	Pixels *image.NRGBA
}

func (o *Image) Kind() Kind               { return KindImage }
func (o *Image) Raster() *image.NRGBA     { return o.Pixels }
func (o *Image) Size() (float64, float64) { return rasterSize(o.Pixels) }
func (*Image) isObject()                  {}

// Circle is centered in its 2r x 2r bounds.
type Circle struct {
	Radius float64
	Color  color.NRGBA
}

func (o *Circle) Kind() Kind { return KindCircle }
func (o *Circle) Size() (float64, float64) {
	return 2 * o.Radius, 2 * o.Radius
}
func (*Circle) isObject() {}

type Rect struct {
	Width, Height float64
	Color         color.NRGBA
}

func (o *Rect) Kind() Kind               { return KindRect }
func (o *Rect) Size() (float64, float64) { return o.Width, o.Height }
func (*Rect) isObject()                  {}

// Line is a segment with round caps. From and To are in object-local
// pixels; the object's center is their midpoint.
type Line struct {
	From, To  animation.Vec2
	Thickness float64
	Color     color.NRGBA
}

func (o *Line) Kind() Kind { return KindLine }
func (o *Line) Size() (float64, float64) {
	return math.Abs(o.To.X-o.From.X) + o.Thickness, math.Abs(o.To.Y-o.From.Y) + o.Thickness
}
func (*Line) isObject() {}

// Endpoints returns From and To relative to the object's center.
func (o *Line) Endpoints() (a, b animation.Vec2) {
	mx, my := (o.From.X+o.To.X)/2, (o.From.Y+o.To.Y)/2
	return animation.Vec2{X: o.From.X - mx, Y: o.From.Y - my},
		animation.Vec2{X: o.To.X - mx, Y: o.To.Y - my}
}

// Text is a styled run rasterized once when the timeline is built.
type Text struct {
	Content  string
	FontSize float64
	Color    color.NRGBA
	Pixels   *image.NRGBA
}

func (o *Text) Kind() Kind               { return KindText }
func (o *Text) Raster() *image.NRGBA     { return o.Pixels }
func (o *Text) Size() (float64, float64) { return rasterSize(o.Pixels) }
func (*Text) isObject()                  {}

type QRCode struct {
	Content string
	Pixels  *image.NRGBA
}

func (o *QRCode) Kind() Kind               { return KindQRCode }
func (o *QRCode) Raster() *image.NRGBA     { return o.Pixels }
func (o *QRCode) Size() (float64, float64) { return rasterSize(o.Pixels) }
func (*QRCode) isObject()                  {}

// VideoPlaceholder reserves the area of a video clip; it is drawn as a
// solid block of Color.
type VideoPlaceholder struct {
	Path          string
	Width, Height float64
	Color         color.NRGBA
}

func (o *VideoPlaceholder) Kind() Kind               { return KindVideoPlaceholder }
func (o *VideoPlaceholder) Size() (float64, float64) { return o.Width, o.Height }
func (*VideoPlaceholder) isObject()                  {}

func rasterSize(img *image.NRGBA) (float64, float64) {
	if img == nil {
		return 0, 0
	}
	b := img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

package source

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/skip2/go-qrcode"
)

func ParseRecoveryLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(s) {
	case "low":
		return qrcode.Low, nil
	case "", "medium":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	}
	return qrcode.Medium, fmt.Errorf("unknown qr recovery level %q", s)
}

// RasterizeQR encodes content as a size x size QR code image.
func RasterizeQR(content string, size int, level qrcode.RecoveryLevel, fg, bg color.NRGBA) (*image.NRGBA, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	if size <= 0 {
		return nil, fmt.Errorf("qr size must be positive, got %d", size)
	}
	q, err := qrcode.New(content, level)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg
	return ToNRGBA(q.Image(size)), nil
}

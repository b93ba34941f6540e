// Package barcode renders credential payloads as QR code images.
package barcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"golang.org/x/image/bmp"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/ports/adapter"
)

// QuietZone is the blank border, in modules, kept around the symbol.
const QuietZone = 4

// MaxSide bounds either canvas dimension, in pixels.
const MaxSide = 4096

const (
	FormatPNG = "PNG"
	FormatGIF = "GIF"
	FormatBMP = "BMP"
)

var contentTypes = map[string]string{
	FormatPNG: "image/png",
	FormatGIF: "image/gif",
	FormatBMP: "image/bmp",
}

// Ensure implementation satisfies the interface.
var _ adapter.BarcodeEncoder = (*Encoder)(nil)

// Encoder produces QR codes at a fixed error-correction level.
type Encoder struct {
	level qr.ErrorCorrectionLevel
}

// NewEncoder accepts "L", "M", "Q" or "H" (case-insensitive).
func NewEncoder(level string) (*Encoder, error) {
	var l qr.ErrorCorrectionLevel
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "L":
		l = qr.L
	case "", "M":
		l = qr.M
	case "Q":
		l = qr.Q
	case "H":
		l = qr.H
	default:
		return nil, fmt.Errorf("unknown error correction level %q: %w", level, domain.ErrInvalidArgument)
	}
	return &Encoder{level: l}, nil
}

// NormalizeFormat upper-cases format and reports whether it is supported.
func NormalizeFormat(format string) (string, bool) {
	f := strings.ToUpper(strings.TrimSpace(format))
	_, ok := contentTypes[f]
	return f, ok
}

// ContentType returns the MIME type for a supported format, or
// application/octet-stream.
func ContentType(format string) string {
	f, _ := NormalizeFormat(format)
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Encode renders text as a width x height image in format.
// The symbol is scaled by the largest integer factor that fits together with
// the quiet zone, and centered on a white canvas.
func (e *Encoder) Encode(text string, width, height int, format string) ([]byte, error) {
	if text == "" {
		return nil, &domain.EncodingError{Op: "validate", Err: errors.New("empty text")}
	}
	if width <= 0 || height <= 0 {
		return nil, &domain.EncodingError{Op: "validate", Err: fmt.Errorf("invalid geometry %dx%d", width, height)}
	}
	if width > MaxSide || height > MaxSide {
		return nil, &domain.EncodingError{Op: "validate", Err: fmt.Errorf("canvas %dx%d exceeds %d pixels per side", width, height, MaxSide)}
	}
	f, ok := NormalizeFormat(format)
	if !ok {
		return nil, &domain.EncodingError{Op: "validate", Err: fmt.Errorf("unsupported format %q", format)}
	}

	code, err := qr.Encode(text, e.level, qr.Auto)
	if err != nil {
		return nil, &domain.EncodingError{Op: "qr", Err: err}
	}
	img, err := render(code, width, height)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch f {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	}
	if err != nil {
		return nil, &domain.EncodingError{Op: "write " + strings.ToLower(f), Err: err}
	}
	return buf.Bytes(), nil
}

var palette = color.Palette{color.White, color.Black}

func render(code barcode.Barcode, width, height int) (*image.Paletted, error) {
	b := code.Bounds()
	modules := b.Dx()
	total := modules + 2*QuietZone
	scale := min(width, height) / total
	if scale < 1 {
		return nil, &domain.EncodingError{
			Op:  "render",
			Err: fmt.Errorf("%dx%d is too small for a %d-module symbol", width, height, modules),
		}
	}

	offX := (width - modules*scale) / 2
	offY := (height - modules*scale) / 2
	img := image.NewPaletted(image.Rect(0, 0, width, height), palette) // index 0 is white

	for my := 0; my < modules; my++ {
		for mx := 0; mx < modules; mx++ {
			if !dark(code.At(b.Min.X+mx, b.Min.Y+my)) {
				continue
			}
			x0, y0 := offX+mx*scale, offY+my*scale
			for y := y0; y < y0+scale; y++ {
				row := img.Pix[y*img.Stride:]
				for x := x0; x < x0+scale; x++ {
					row[x] = 1
				}
			}
		}
	}
	return img, nil
}

func dark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r+g+b < 3*0x8000
}

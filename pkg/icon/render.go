// Package icon rasterizes short layout labels into small square images.
package icon

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultSize     = 16
	DefaultFontSize = 10
	DefaultDPI      = 96
	DefaultX        = 0
	DefaultY        = 1
)

var DefaultColor = color.RGBA{R: 0xdf, G: 0xdf, B: 0xdf, A: 0xff}

type Options struct {
	Size     int
	FontSize float64
	DPI      float64
	Color    color.Color
	X, Y     int
	// Center places the text in the middle of the icon, ignoring X and Y.
	Center bool
}

func DefaultOptions() Options {
	return Options{
		Size:     DefaultSize,
		FontSize: DefaultFontSize,
		DPI:      DefaultDPI,
		Color:    DefaultColor,
		X:        DefaultX,
		Y:        DefaultY,
	}
}

type Renderer struct {
	opts Options
	face font.Face
}

func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("invalid icon size %d", opts.Size)
	}
	if opts.FontSize <= 0 {
		return nil, fmt.Errorf("invalid font size %v", opts.FontSize)
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	if opts.Color == nil {
		opts.Color = DefaultColor
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     opts.DPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}

	return &Renderer{opts: opts, face: face}, nil
}

func (r *Renderer) Close() error {
	return r.face.Close()
}

// Render draws label onto a transparent square. The pen position is the top
// left corner of the text's logical box.
func (r *Renderer) Render(label string) (image.Image, error) {
	size := r.opts.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.opts.Color),
		Face: r.face,
	}

	metrics := r.face.Metrics()
	x := fixed.I(r.opts.X)
	y := fixed.I(r.opts.Y)
	if r.opts.Center {
		width := d.MeasureString(label)
		x = (fixed.I(size) - width) / 2
		y = (fixed.I(size) - metrics.Height) / 2
	}

	d.Dot = fixed.Point26_6{X: x, Y: y + metrics.Ascent}
	d.DrawString(label)

	return img, nil
}

// ParseColor parses a hex RGB color such as "DFDFDF" or "#2e3436".
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}

	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}

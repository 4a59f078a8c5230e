package sni

import (
	"image"
	"image/color"
)

// Pixmap is the (iiay) structure used by IconPixmap and ToolTip: ARGB32 in
// network byte order, row major.
type Pixmap struct {
	Width  int32
	Height int32
	Data   []byte
}

// ToolTip is the (sa(iiay)ss) structure of the ToolTip property.
type ToolTip struct {
	IconName    string
	IconPixmap  []Pixmap
	Title       string
	Description string
}

func NewPixmap(img image.Image) Pixmap {
	b := img.Bounds()
	data := make([]byte, 0, 4*b.Dx()*b.Dy())

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			data = append(data, c.A, c.R, c.G, c.B)
		}
	}

	return Pixmap{
		Width:  int32(b.Dx()),
		Height: int32(b.Dy()),
		Data:   data,
	}
}

package heightmap

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// Image renders the grid as grayscale, normalized to its own min and max.
func (g *Grid) Image() *image.Gray {
	res := g.Params.Resolution
	img := image.NewGray(image.Rect(0, 0, res, res))
	span := g.Max - g.Min
	for iz := 0; iz < res; iz++ {
		for ix := 0; ix < res; ix++ {
			var v float32
			if span > 0 {
				v = (g.At(ix, iz) - g.Min) / span
			}
			img.SetGray(ix, iz, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return img
}

// WritePreview encodes the grid as a size x size PNG. The grid is resampled
// when size differs from its resolution.
func WritePreview(w io.Writer, g *Grid, size int) error {
	if g == nil {
		return errors.New("heightmap: no bake to preview")
	}
	if size <= 0 {
		size = g.Params.Resolution
	}
	src := g.Image()
	if size == g.Params.Resolution {
		return png.Encode(w, src)
	}
	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return png.Encode(w, dst)
}

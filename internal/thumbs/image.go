package thumbs

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"

	"grabarr/internal/domain/consts"
)

// roundedMask is an alpha mask that is opaque everywhere except outside the corner arcs.
type roundedMask struct {
	rect   image.Rectangle
	radius float64
}

func (m *roundedMask) ColorModel() color.Model { return color.AlphaModel }

func (m *roundedMask) Bounds() image.Rectangle { return m.rect }

func (m *roundedMask) At(x, y int) color.Color {
	r := m.radius
	// Pixel centres.
	px := float64(x) + 0.5
	py := float64(y) + 0.5
	minX, minY := float64(m.rect.Min.X), float64(m.rect.Min.Y)
	maxX, maxY := float64(m.rect.Max.X), float64(m.rect.Max.Y)

	var cx, cy float64
	switch {
	case px < minX+r && py < minY+r:
		cx, cy = minX+r, minY+r
	case px > maxX-r && py < minY+r:
		cx, cy = maxX-r, minY+r
	case px < minX+r && py > maxY-r:
		cx, cy = minX+r, maxY-r
	case px > maxX-r && py > maxY-r:
		cx, cy = maxX-r, maxY-r
	default:
		return color.Alpha{A: 0xff}
	}

	// One pixel of anti-aliasing along the arc.
	coverage := r + 0.5 - math.Hypot(px-cx, py-cy)
	switch {
	case coverage <= 0:
		return color.Alpha{}
	case coverage >= 1:
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{A: uint8(coverage * 0xff)}
}

// Render scales src to the thumbnail size and rounds its corners.
func Render(src image.Image) *image.RGBA {
	bounds := image.Rect(0, 0, consts.ThumbnailWidth, consts.ThumbnailHeight)

	scaled := image.NewRGBA(bounds)
	draw.CatmullRom.Scale(scaled, bounds, src, src.Bounds(), draw.Src, nil)

	return round(scaled)
}

func round(src *image.RGBA) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	mask := &roundedMask{rect: src.Bounds(), radius: consts.ThumbnailRadius}
	draw.DrawMask(out, out.Bounds(), src, src.Bounds().Min, mask, src.Bounds().Min, draw.Over)
	return out
}

var placeholder = sync.OnceValue(func() *image.RGBA {
	bounds := image.Rect(0, 0, consts.ThumbnailWidth, consts.ThumbnailHeight)
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, image.NewUniform(color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}), image.Point{}, draw.Src)
	return round(img)
})

// Placeholder returns the neutral image shown until a thumbnail arrives. Callers must not modify it.
func Placeholder() image.Image {
	return placeholder()
}

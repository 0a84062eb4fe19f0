// Package imaging holds the pixel operations shared by the upload and scan paths.
package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultSize is the edge length of a normalized image.
const DefaultSize = 600

// CenterSquare returns the largest square centred in r.
func CenterSquare(r image.Rectangle) image.Rectangle {
	side := r.Dx()
	if r.Dy() < side {
		side = r.Dy()
	}
	return centred(r, side)
}

// CenterRegion returns a size x size square centred in r, clamped to r.
func CenterRegion(r image.Rectangle, size int) image.Rectangle {
	sq := CenterSquare(r)
	if size <= 0 || size >= sq.Dx() {
		return sq
	}
	return centred(r, size)
}

func centred(r image.Rectangle, side int) image.Rectangle {
	x0 := r.Min.X + (r.Dx()-side)/2
	y0 := r.Min.Y + (r.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// Normalize crops the centred square of src, scales it to size x size and
// converts it to greyscale.
func Normalize(src image.Image, size int) *image.Gray {
	if size <= 0 {
		size = DefaultSize
	}
	dst := image.NewGray(image.Rect(0, 0, size, size))
	sr := CenterSquare(src.Bounds())
	if sr.Empty() {
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
	return dst
}

// Crop copies region of src into a new greyscale image anchored at the origin.
func Crop(src image.Image, region image.Rectangle) *image.Gray {
	region = region.Intersect(src.Bounds())
	dst := image.NewGray(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), src, region.Min, draw.Src)
	return dst
}

package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/salesbook/internal/common"
)

func TestCenterSquare(t *testing.T) {
	tests := []struct {
		name string
		in   image.Rectangle
		want image.Rectangle
	}{
		{"landscape", image.Rect(0, 0, 800, 600), image.Rect(100, 0, 700, 600)},
		{"portrait", image.Rect(0, 0, 300, 500), image.Rect(0, 100, 300, 400)},
		{"square", image.Rect(0, 0, 64, 64), image.Rect(0, 0, 64, 64)},
		{"offset", image.Rect(10, 20, 110, 70), image.Rect(35, 20, 85, 70)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CenterSquare(tt.in))
		})
	}
}

func TestCenterRegion(t *testing.T) {
	require.Equal(t, image.Rect(275, 175, 525, 425), CenterRegion(image.Rect(0, 0, 800, 600), 250))
	// larger than the frame collapses to the centred square
	require.Equal(t, image.Rect(50, 0, 250, 200), CenterRegion(image.Rect(0, 0, 300, 200), 250))
}

func TestNormalize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1200, 900))
	for y := 0; y < 900; y++ {
		for x := 0; x < 1200; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}

	out := Normalize(src, 600)
	require.Equal(t, image.Rect(0, 0, 600, 600), out.Bounds())
	want := color.GrayModel.Convert(color.RGBA{R: 200, G: 40, B: 40, A: 255}).(color.Gray)
	require.InDelta(t, float64(want.Y), float64(out.GrayAt(300, 300).Y), 1)
}

func TestNormalizeDefaultsSize(t *testing.T) {
	out := Normalize(image.NewGray(image.Rect(0, 0, 10, 20)), 0)
	require.Equal(t, DefaultSize, out.Bounds().Dx())
}

func TestCrop(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	src.SetGray(5, 5, color.Gray{Y: 255})

	out := Crop(src, image.Rect(4, 4, 8, 8))
	require.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	require.Equal(t, uint8(255), out.GrayAt(1, 1).Y)
	require.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
}

func TestDecodeAndSniff(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))

	format, ok := Sniff(buf.Bytes())
	require.True(t, ok)
	require.Equal(t, "png", format)

	img, format, err := Decode(buf.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, 4, img.Bounds().Dx())

	_, ok = Sniff([]byte("not an image"))
	require.False(t, ok)
}

// pngHeader is a PNG that declares w x h greyscale pixels but carries only the
// header chunk, so the size check runs without any pixel data existing.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth; colour type 0 (grey), no interlace
	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodePixelBudget(t *testing.T) {
	var small bytes.Buffer
	require.NoError(t, png.Encode(&small, image.NewGray(image.Rect(0, 0, 40, 30))))

	tests := []struct {
		name      string
		buf       []byte
		maxPixels int
		wantErr   error
	}{
		{"within budget", small.Bytes(), 1200, nil},
		{"one pixel over", small.Bytes(), 1199, common.ErrUnsupportedFormat},
		{"huge declared size, default budget", pngHeader(50000, 50000), 0, common.ErrUnsupportedFormat},
		{"huge declared width", pngHeader(1<<30, 1), 0, common.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, CheckSize(tt.buf, tt.maxPixels), tt.wantErr)

			img, _, err := Decode(tt.buf, tt.maxPixels)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, img)
				return
			}
			require.NoError(t, err)
			require.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
		})
	}
}

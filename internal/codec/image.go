package codec

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
)

// DecodeSquare decodes a PNG/JPEG and returns it center-cropped to a square of size x size.
func DecodeSquare(r io.Reader, size int) (image.Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return Square(src, size), nil
}

// Square center-crops src to a square and scales it (nearest neighbour) to size x size.
// A size <= 0 keeps the cropped dimension.
func Square(src image.Image, size int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	side := w
	if h < w {
		side = h
	}
	x0 := bounds.Min.X + (w-side)/2
	y0 := bounds.Min.Y + (h-side)/2

	crop := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(crop, crop.Bounds(), src, image.Point{x0, y0}, draw.Src)

	if size <= 0 || size == side {
		return crop
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			dst.Set(x, y, crop.At(x*side/size, y*side/size))
		}
	}
	return dst
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

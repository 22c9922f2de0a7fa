package inference

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// preprocess decodes the image, scales it to size x size, and returns a
// float32 tensor in NHWC order with a single-item batch dimension, pixels
// normalized to [0,1].
func preprocess(imageBytes []byte, size int) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	// NHWC with batch=1: length = 1 * size * size * 3
	out := make([]float32, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r32, g32, b32, _ := scaled.At(x, y).RGBA()
			base := ((y * size) + x) * 3
			out[base+0] = float32(r32>>8) / 255.0
			out[base+1] = float32(g32>>8) / 255.0
			out[base+2] = float32(b32>>8) / 255.0
		}
	}
	return out, nil
}

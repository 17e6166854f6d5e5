package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func decodeStill(data []byte) (image.Image, bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, false
	}
	return img, true
}

func targetSize(width, height int) (int, int) {
	longest := max(width, height)
	if longest <= MaxDimension {
		return width, height
	}

	scale := float64(MaxDimension) / float64(longest)
	if width >= height {
		return MaxDimension, max(1, int(math.Round(float64(height)*scale)))
	}
	return max(1, int(math.Round(float64(width)*scale))), MaxDimension
}

func optimizeFrame(img image.Image) (Frame, error) {
	b := img.Bounds()
	w, h := targetSize(b.Dx(), b.Dy())

	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return Frame{}, fmt.Errorf("jpeg encode: %w", err)
	}

	return Frame{
		MIMEType: MIMETypeJPEG,
		Data:     buf.Bytes(),
		Width:    w,
		Height:   h,
	}, nil
}

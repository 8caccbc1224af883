// Package enhance normalizes photographs of writing surfaces (blackboards,
// whiteboards, paper) into high-contrast images suitable for vision
// transcription: grayscale, median denoise, Otsu binarization, and a
// polarity flip so ink always ends up dark on light.
package enhance

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"

	_ "image/gif"
	_ "image/jpeg"

	appErr "boardtex/internal/pkg/errors"
)

// MinDimension is the smallest usable edge length. Anything below this is
// too small to carry readable math.
const MinDimension = 32

type Enhancer struct{}

func New() *Enhancer {
	return &Enhancer{}
}

// Enhance converts raw photo bytes into an enhanced PNG. It returns
// ErrDecode when the input is not a decodable image and ErrEnhance when a
// decodable image cannot be processed.
func (e *Enhancer) Enhance(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrDecode, err)
	}
	bounds := src.Bounds()
	if bounds.Dx() < MinDimension || bounds.Dy() < MinDimension {
		return nil, fmt.Errorf("%w: image %dx%d below usable minimum %d", appErr.ErrEnhance, bounds.Dx(), bounds.Dy(), MinDimension)
	}

	gray := toGray(src)
	blurred := medianBlur3(gray)
	threshold := otsuThreshold(blurred)
	binary := binarize(blurred, threshold)
	if meanLevel(binary) < 127 {
		invert(binary)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, binary); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", appErr.ErrEnhance, err)
	}
	return out.Bytes(), nil
}

func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return gray
}

// medianBlur3 applies a 3x3 median filter, the cheap equivalent of the
// original pipeline's denoise pass. Border pixels are kept as-is.
func medianBlur3(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	copy(dst.Pix, src.Pix)
	window := make([]byte, 0, 9)
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window = append(window, src.GrayAt(x+dx, y+dy).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			dst.SetGray(x, y, color.Gray{Y: window[4]})
		}
	}
	return dst
}

// otsuThreshold picks the threshold maximizing between-class variance.
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	total := 0
	for _, v := range img.Pix {
		hist[v]++
		total++
	}
	sum := 0.0
	for i, count := range hist {
		sum += float64(i) * float64(count)
	}
	sumB := 0.0
	wB := 0
	best := 0.0
	threshold := uint8(0)
	for i, count := range hist {
		wB += count
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(count)
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(i)
		}
	}
	return threshold
}

func binarize(src *image.Gray, threshold uint8) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if v > threshold {
			dst.Pix[i] = 255
		} else {
			dst.Pix[i] = 0
		}
	}
	return dst
}

func meanLevel(img *image.Gray) int {
	if len(img.Pix) == 0 {
		return 0
	}
	sum := 0
	for _, v := range img.Pix {
		sum += int(v)
	}
	return sum / len(img.Pix)
}

func invert(img *image.Gray) {
	for i := range img.Pix {
		img.Pix[i] = 255 - img.Pix[i]
	}
}

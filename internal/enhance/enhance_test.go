package enhance_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"boardtex/internal/enhance"
	appErr "boardtex/internal/pkg/errors"
)

func boardPhoto(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	// dark board with a light "chalk" stripe
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 30, G: 40, B: 35, A: 255}
			if y > h/3 && y < h/3+4 {
				c = color.RGBA{R: 220, G: 220, B: 215, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEnhanceProducesBinaryPNG(t *testing.T) {
	e := enhance.New()
	out, err := e.Enhance(boardPhoto(t, 120, 90))
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, 120, decoded.Bounds().Dx())
	require.Equal(t, 90, decoded.Bounds().Dy())

	// output must be ink-on-light: most pixels white, none mid-gray
	white, black := 0, 0
	for y := 0; y < 90; y++ {
		for x := 0; x < 120; x++ {
			g := color.GrayModel.Convert(decoded.At(x, y)).(color.Gray).Y
			switch g {
			case 255:
				white++
			case 0:
				black++
			default:
				t.Fatalf("non-binary pixel %d at (%d,%d)", g, x, y)
			}
		}
	}
	require.Greater(t, white, black)
}

func TestEnhanceRejectsUndecodableInput(t *testing.T) {
	e := enhance.New()
	_, err := e.Enhance([]byte("not an image at all"))
	require.ErrorIs(t, err, appErr.ErrDecode)
}

func TestEnhanceRejectsTinyImage(t *testing.T) {
	e := enhance.New()
	_, err := e.Enhance(boardPhoto(t, 8, 8))
	require.ErrorIs(t, err, appErr.ErrEnhance)
}

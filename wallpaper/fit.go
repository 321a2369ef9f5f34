package wallpaper

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // upscale service occasionally returns PNG

	"golang.org/x/image/draw"
)

// jpegQuality for re-encoded wallpapers. The OS compositor is the final
// consumer, so near-lossless is wasted bytes.
const jpegQuality = 92

// FitToScreen downscales an image so it fits within the screen resolution
// while preserving its aspect ratio. Images already within bounds are
// returned unchanged; everything else is resampled with Catmull-Rom and
// re-encoded as JPEG. Upscaled outputs are 4x the generation size, far
// beyond what any display can show, and bloat both disk and compositor
// memory if stored as-is.
func FitToScreen(data []byte, screenWidth, screenHeight int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("wallpaper: failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= screenWidth && height <= screenHeight {
		return data, nil
	}

	scaleW := float64(screenWidth) / float64(width)
	scaleH := float64(screenHeight) / float64(height)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	targetW := int(float64(width) * scale)
	targetH := int(float64(height) * scale)
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("wallpaper: failed to encode resized image: %w", err)
	}
	return out.Bytes(), nil
}

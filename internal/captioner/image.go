package captioner

import (
	"bytes"
	"fmt"
	"image"
	"os"

	// Image format decoders
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"visionvault/internal/logging"
	"visionvault/internal/mediatypes"
)

const (
	// DefaultMaxDimension is the longest side sent to the captioning service.
	DefaultMaxDimension = 1024

	// MaxImagePixels is the largest image we'll decode at all.
	// A 100MP image would be ~400MB in RGBA.
	MaxImagePixels = 100_000_000

	jpegQuality = 85
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// prepareImage returns the bytes and MIME type to upload for path. Images
// within maxDimension in a format the service accepts are sent unchanged;
// anything larger, or WebP, is decoded, auto-oriented, fitted within
// maxDimension and re-encoded as JPEG.
func prepareImage(path string, maxDimension int) ([]byte, string, error) {
	dims, err := GetImageDimensions(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image header: %w", err)
	}
	if dims.Width*dims.Height > MaxImagePixels {
		return nil, "", fmt.Errorf("image %dx%d exceeds %d pixels", dims.Width, dims.Height, MaxImagePixels)
	}

	mimeType := mediatypes.GetMimeType(path)
	fits := dims.Width <= maxDimension && dims.Height <= maxDimension
	if fits && (mimeType == "image/jpeg" || mimeType == "image/png") {
		data, err := os.ReadFile(path)
		return data, mimeType, err
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	if !fits {
		logging.Debug("Downscaling %s from %dx%d to fit %d", path, dims.Width, dims.Height, maxDimension)
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

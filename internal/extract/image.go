package extract

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes is the largest image accepted for recognition (20MB).
const MaxImageBytes = 20 * 1024 * 1024

// Image is a captured invoice image.
type Image struct {
	Data []byte
	MIME string
}

// NewImage sniffs the MIME type of data and rejects anything that is not an image.
func NewImage(data []byte) (Image, error) {
	if len(data) > MaxImageBytes {
		return Image{}, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mime.String())
	}

	return Image{Data: data, MIME: mime.String()}, nil
}

// ReadImage reads an image from r.
func ReadImage(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	return NewImage(data)
}

// LoadImage reads the image file at path.
func LoadImage(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return ReadImage(f)
}

// DataURL encodes the image as a base64 data URL, the form records keep it in.
func (img Image) DataURL() string {
	if len(img.Data) == 0 {
		return ""
	}
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ParseDataURL decodes a base64 data URL produced by DataURL.
func ParseDataURL(s string) (Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Image{}, fmt.Errorf("%w: not a data URL", ErrUnsupportedImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return Image{}, fmt.Errorf("%w: data URL is not base64", ErrUnsupportedImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode data URL: %w", err)
	}
	return Image{Data: data, MIME: strings.TrimSuffix(meta, ";base64")}, nil
}

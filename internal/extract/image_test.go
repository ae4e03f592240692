package extract

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageSniffsMIME(t *testing.T) {
	img, err := NewImage(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME)

	jpeg, err := NewImage([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", jpeg.MIME)

	_, err = NewImage([]byte("%PDF-1.7\n"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = NewImage(make([]byte, MaxImageBytes+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestDataURLRoundTrip(t *testing.T) {
	img, err := ReadImage(bytes.NewReader(pngHeader))
	require.NoError(t, err)

	url := img.DataURL()
	assert.Contains(t, url, "data:image/png;base64,")

	back, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, img, back)

	_, err = ParseDataURL("https://example.com/a.png")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	_, err = ParseDataURL("data:image/png,raw")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	assert.Empty(t, Image{}.DataURL())
}

package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// fileHeader round-trips content through a real multipart body so that
// FileHeader.Open works.
func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func TestValidateImageFile(t *testing.T) {
	u := New()
	data := encodePNG(t, 2, 2)

	assert.NoError(t, u.ValidateImageFile(fileHeader(t, "a.png", "image/png", data)))
	assert.NoError(t, u.ValidateImageFile(fileHeader(t, "a.JPG", "image/jpeg", data)))
	assert.NoError(t, u.ValidateImageFile(fileHeader(t, "a.jpeg", "image/jpeg", data)))

	assert.ErrorIs(t, u.ValidateImageFile(nil), ErrNoFile)
	assert.ErrorIs(t, u.ValidateImageFile(fileHeader(t, "a.gif", "image/gif", data)), ErrUnsupportedFileType)
	assert.ErrorIs(t, u.ValidateImageFile(fileHeader(t, "a.png", "image/jpeg", data)), ErrUnsupportedFileType)
	assert.ErrorIs(t, u.ValidateImageFile(fileHeader(t, "a.png", "", data)), ErrUnsupportedFileType)

	small := NewWithLimit(4)
	assert.ErrorIs(t, small.ValidateImageFile(fileHeader(t, "a.png", "image/png", data)), ErrFileTooLarge)
}

func TestReadImageFile_SniffsContent(t *testing.T) {
	u := New()

	data, ct, err := u.ReadImageFile(fileHeader(t, "a.png", "image/png", encodePNG(t, 3, 3)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.NotEmpty(t, data)

	_, ct, err = u.ReadImageFile(fileHeader(t, "a.jpg", "image/jpeg", encodeJPEG(t, 3, 3)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	_, _, err = u.ReadImageFile(fileHeader(t, "fake.png", "image/png", []byte("GIF89a not really")))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestDecodeDimensions(t *testing.T) {
	u := New()

	w, h, err := u.DecodeDimensions(encodePNG(t, 640, 480))
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	w, h, err = u.DecodeDimensions(encodeJPEG(t, 33, 17))
	require.NoError(t, err)
	assert.Equal(t, 33, w)
	assert.Equal(t, 17, h)

	truncated := encodePNG(t, 64, 64)
	_, _, err = u.DecodeDimensions(truncated[:len(truncated)/2])
	assert.ErrorIs(t, err, ErrUndecodableImage)

	_, _, err = u.DecodeDimensions([]byte("nope"))
	assert.ErrorIs(t, err, ErrUndecodableImage)
}

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()
	a, err := u.NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	b, err := u.NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

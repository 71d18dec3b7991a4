package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
)

const DefaultMaxFileSize = 10 * 1024 * 1024

var (
	ErrNoFile              = errors.New("no file uploaded")
	ErrFileTooLarge        = errors.New("file size exceeds limit")
	ErrUnsupportedFileType = errors.New("uploaded file is not a jpeg or png image")
	ErrUndecodableImage    = errors.New("image could not be decoded")
)

// AcceptedTypes mirrors the drop zone's picker filter.
var AcceptedTypes = map[string][]string{
	"image/jpeg": {".jpeg", ".jpg"},
	"image/png":  {".png"},
}

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadImageFile(file *multipart.FileHeader) ([]byte, string, error)
	DecodeDimensions(data []byte) (width, height int, err error)
}

type utils struct {
	maxFileSize int64
}

func New() IUtils {
	return NewWithLimit(DefaultMaxFileSize)
}

func NewWithLimit(maxFileSize int64) IUtils {
	return &utils{
		maxFileSize: maxFileSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType, _, err := mime.ParseMediaType(file.Header.Get("Content-Type"))
	if err != nil {
		return ErrUnsupportedFileType
	}

	extensions, ok := AcceptedTypes[contentType]
	if !ok {
		return ErrUnsupportedFileType
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	for _, allowed := range extensions {
		if ext == allowed {
			return nil
		}
	}

	return ErrUnsupportedFileType
}

// ReadImageFile returns the file's bytes and the content type sniffed from
// them. The sniffed type must be one of AcceptedTypes; a renamed file is
// rejected here even when its header claimed otherwise.
func (u *utils) ReadImageFile(file *multipart.FileHeader) ([]byte, string, error) {
	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, "", ErrFileTooLarge
	}

	detected := mimetype.Detect(data)
	for accepted := range AcceptedTypes {
		if detected.Is(accepted) {
			return data, accepted, nil
		}
	}

	return nil, "", ErrUnsupportedFileType
}

// DecodeDimensions fully decodes data so a truncated file fails here rather
// than after it has been sent for detection.
func (u *utils) DecodeDimensions(data []byte) (int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return 0, 0, fmt.Errorf("%w: empty image", ErrUndecodableImage)
	}
	return bounds.Dx(), bounds.Dy(), nil
}

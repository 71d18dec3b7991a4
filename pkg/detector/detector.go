package detector

import (
	"HawkVision/internal/entity"
	"HawkVision/pkg/log"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

const (
	DefaultURL     = "http://localhost:8000/predict"
	DefaultTimeout = 30 * time.Second

	formField = "file"
)

var (
	ErrUnexpectedStatus  = errors.New("detection service returned non-success status")
	ErrMalformedResponse = errors.New("detection service returned malformed response")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

type IDetector interface {
	Predict(ctx context.Context, img Image) ([]entity.Detection, error)
	Close() error
}

// New picks the transport from DETECTION_TRANSPORT. Plain HTTP is the default.
func New() (IDetector, error) {
	timeout := DefaultTimeout
	if raw := os.Getenv("DETECTION_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid DETECTION_TIMEOUT %q: %w", raw, err)
		}
		timeout = d
	}

	switch os.Getenv("DETECTION_TRANSPORT") {
	case "", "http":
		url := os.Getenv("DETECTION_URL")
		if url == "" {
			url = DefaultURL
		}
		return NewHTTPDetector(url, timeout), nil
	case "ws":
		url := os.Getenv("DETECTION_WS_URL")
		if url == "" {
			return nil, errors.New("DETECTION_WS_URL is required for the ws transport")
		}
		return NewWebSocketDetector(url, timeout), nil
	default:
		return nil, fmt.Errorf("unknown DETECTION_TRANSPORT %q", os.Getenv("DETECTION_TRANSPORT"))
	}
}

type httpDetector struct {
	url    string
	client *http.Client
}

func NewHTTPDetector(url string, timeout time.Duration) IDetector {
	return &httpDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *httpDetector) Predict(ctx context.Context, img Image) ([]entity.Detection, error) {
	body, contentType, err := encodeMultipart(img)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	log.WithRequestID(ctx).WithFields(log.Fields{
		"url":   d.url,
		"bytes": len(img.Data),
	}).Debug("Sending image to detection service")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return DecodePredictions(payload)
}

func (d *httpDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func encodeMultipart(img Image) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := img.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

type predictResponse struct {
	Predictions []prediction `json:"predictions" validate:"dive"`
}

type prediction struct {
	Box        []float64 `json:"box" validate:"len=4"`
	Label      string    `json:"label" validate:"required"`
	Confidence float64   `json:"confidence" validate:"gte=0,lte=1"`
}

var validate = validator.New()

// DecodePredictions parses the {"predictions": [...]} envelope. Anything that
// does not match it exactly is rejected so no partial result escapes.
func DecodePredictions(payload []byte) ([]entity.Detection, error) {
	var resp struct {
		Predictions *[]prediction `json:"predictions"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Predictions == nil {
		return nil, fmt.Errorf("%w: missing predictions", ErrMalformedResponse)
	}

	wire := predictResponse{Predictions: *resp.Predictions}
	if err := validate.Struct(wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make([]entity.Detection, 0, len(wire.Predictions))
	for _, p := range wire.Predictions {
		out = append(out, entity.Detection{
			Box:        [4]float64{p.Box[0], p.Box[1], p.Box[2], p.Box[3]},
			Label:      p.Label,
			Confidence: p.Confidence,
		})
	}
	return out, nil
}

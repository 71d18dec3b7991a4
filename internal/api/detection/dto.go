package detection

import (
	"HawkVision/internal/entity"
	"HawkVision/pkg/overlay"
)

const (
	MessageDetectionFailed = "Failed to process image. Please try again."
	MessageDecodeFailed    = "Failed to load image. Please try a different file."
)

type ViewStateResponse struct {
	entity.ViewState
	Phase entity.ViewPhase `json:"phase"`
}

func NewViewStateResponse(state entity.ViewState) ViewStateResponse {
	return ViewStateResponse{ViewState: state, Phase: state.Phase()}
}

type OverlayRequest struct {
	Width  float64 `query:"width" validate:"gte=0"`
	Height float64 `query:"height" validate:"gte=0"`
}

type OverlayResponse struct {
	RequestID uint64         `json:"request_id"`
	Boxes     []overlay.Rect `json:"boxes"`
}

type SummaryResponse struct {
	RequestID uint64                `json:"request_id"`
	Heading   string                `json:"heading"`
	Total     int                   `json:"total"`
	Lines     []overlay.SummaryLine `json:"lines"`
	Text      []string              `json:"text"`
}

func NewSummaryResponse(requestID uint64, s overlay.Summary) SummaryResponse {
	text := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		text = append(text, l.String())
	}
	return SummaryResponse{
		RequestID: requestID,
		Heading:   s.Heading(),
		Total:     s.Total,
		Lines:     s.Lines,
		Text:      text,
	}
}

type StreamMessageType string

const (
	StreamState StreamMessageType = "state"
	StreamError StreamMessageType = "error"
)

// StreamMessage is pushed to a viewer's websocket whenever its state changes.
type StreamMessage struct {
	Type  StreamMessageType  `json:"type"`
	State *ViewStateResponse `json:"state,omitempty"`
	Error string             `json:"error,omitempty"`
}

const PreviewPath = "/api/v1/detection/preview/"

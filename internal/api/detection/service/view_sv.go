package detectionService

import (
	"HawkVision/internal/api/detection"
	"HawkVision/internal/entity"
	"HawkVision/pkg/overlay"
	"HawkVision/pkg/preview"
	"errors"

	"golang.org/x/net/context"
)

func (s *detectionService) State(sessionID string) (entity.ViewState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return entity.ViewState{}, err
	}
	return sess.snapshot(), nil
}

// Overlay maps the session's detections onto el. An empty list is returned
// when there is no preview, no detections, or el is not laid out.
func (s *detectionService) Overlay(sessionID string, el overlay.DisplayedImage) (detection.OverlayResponse, error) {
	state, err := s.State(sessionID)
	if err != nil {
		return detection.OverlayResponse{}, err
	}

	boxes := []overlay.Rect{}
	if state.PreviewURL != nil {
		if rects := overlay.Render(el, state.ImageSize, state.Predictions); rects != nil {
			boxes = rects
		}
	}

	return detection.OverlayResponse{
		RequestID: state.RequestID,
		Boxes:     boxes,
	}, nil
}

func (s *detectionService) Summary(sessionID string) (detection.SummaryResponse, error) {
	state, err := s.State(sessionID)
	if err != nil {
		return detection.SummaryResponse{}, err
	}
	return detection.NewSummaryResponse(state.RequestID, overlay.Summarize(state.Predictions)), nil
}

// Preview serves only the image a session is currently showing.
func (s *detectionService) Preview(ctx context.Context, sessionID string, previewID string) (preview.Image, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return preview.Image{}, err
	}

	sess.mu.Lock()
	current := sess.previewID
	sess.mu.Unlock()

	if previewID == "" || previewID != current {
		return preview.Image{}, detection.ErrPreviewNotFound
	}

	img, err := s.previews.Get(ctx, previewID)
	if errors.Is(err, preview.ErrNotFound) {
		return preview.Image{}, detection.ErrPreviewNotFound
	}
	if err != nil {
		return preview.Image{}, err
	}
	return img, nil
}

func (s *detectionService) Subscribe(sessionID string) (<-chan entity.ViewState, func(), error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, unsubscribe := sess.subscribe()
	return ch, unsubscribe, nil
}

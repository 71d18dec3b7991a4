package detectionService

import (
	"HawkVision/internal/api/detection"
	"HawkVision/internal/entity"
	contextPkg "HawkVision/pkg/context"
	"HawkVision/pkg/detector"
	"HawkVision/pkg/log"
	"HawkVision/pkg/metrics"
	"HawkVision/pkg/preview"
	"HawkVision/pkg/utils"
	"errors"
	"mime/multipart"
	"time"

	"golang.org/x/net/context"
)

// Upload tracks the asynchronous half of one drop.
type Upload struct {
	requestID uint64
	done      chan struct{}
}

func (u *Upload) RequestID() uint64 {
	return u.requestID
}

func (u *Upload) Done() <-chan struct{} {
	return u.done
}

type dropped struct {
	filename    string
	contentType string
	data        []byte
}

func (s *detectionService) Drop(ctx context.Context, sessionID string, files []*multipart.FileHeader) (*Upload, error) {
	if len(files) == 0 || files[0] == nil {
		return nil, detection.ErrNoFile
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	requestLog := s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
	})

	file := files[0]
	if len(files) > 1 {
		requestLog.WithField("ignored", len(files)-1).Debug("Multiple files dropped, using the first")
	}

	if err := s.utils.ValidateImageFile(file); err != nil {
		s.metrics.ObserveUpload(metrics.OutcomeRejected)
		return nil, s.intakeError(requestLog.Data, err)
	}

	data, contentType, err := s.utils.ReadImageFile(file)
	if err != nil {
		s.metrics.ObserveUpload(metrics.OutcomeRejected)
		return nil, s.intakeError(requestLog.Data, err)
	}

	previewID, err := s.previews.Put(ctx, preview.Image{ContentType: contentType, Data: data})
	if err != nil {
		requestLog.WithField("error", err.Error()).Error("Failed to store preview")
		return nil, detection.ErrInternalServerError
	}

	upload, procCtx, superseded, ok := s.begin(sess, previewID)
	if !ok {
		s.releasePreview(requestLog.Data, previewID)
		return nil, detection.ErrSessionNotFound
	}
	if superseded != "" {
		s.releasePreview(requestLog.Data, superseded)
	}

	requestLog.WithFields(log.Fields{
		"upload_id": upload.requestID,
		"file_name": file.Filename,
		"file_size": len(data),
	}).Info("Image dropped")

	// The async half outlives the request but keeps its ids for logging.
	procCtx = contextPkg.WithRequestID(procCtx, contextPkg.GetRequestID(ctx))
	procCtx = contextPkg.WithSessionID(procCtx, sessionID)

	go s.process(procCtx, sess, upload, dropped{
		filename:    file.Filename,
		contentType: contentType,
		data:        data,
	})

	return upload, nil
}

// begin resets the session for a new drop and returns the preview it
// replaced, if any.
func (s *detectionService) begin(sess *session, previewID string) (*Upload, context.Context, string, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return nil, nil, "", false
	}

	if sess.cancel != nil {
		sess.cancel()
	}
	procCtx, cancel := context.WithCancel(s.base)
	sess.cancel = cancel

	superseded := sess.previewID
	sess.previewID = previewID

	url := detection.PreviewPath + previewID
	requestID := sess.state.RequestID + 1
	sess.state = entity.ViewState{
		Predictions: []entity.Detection{},
		PreviewURL:  &url,
		Loading:     true,
		RequestID:   requestID,
	}
	sess.publishLocked()

	return &Upload{requestID: requestID, done: make(chan struct{})}, procCtx, superseded, true
}

func (s *detectionService) process(ctx context.Context, sess *session, upload *Upload, img dropped) {
	defer close(upload.done)

	entry := s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": contextPkg.GetSessionID(ctx),
		"upload_id":  upload.requestID,
	})

	width, height, err := s.utils.DecodeDimensions(img.data)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("Dropped image could not be decoded")
		s.fail(sess, upload, entry.Data, metrics.OutcomeDecodeError, detection.MessageDecodeFailed)
		return
	}

	// Boxes come back in native pixels, so the size is recorded before the
	// call goes out.
	kept := sess.finish(upload.requestID, func(state *entity.ViewState) {
		state.ImageSize = entity.ImageDimensions{Width: width, Height: height}
	})
	if !kept {
		s.metrics.ObserveUpload(metrics.OutcomeStale)
		entry.Debug("Upload superseded before detection")
		return
	}

	start := time.Now()
	predictions, err := s.detector.Predict(ctx, detector.Image{
		Filename:    img.filename,
		ContentType: img.contentType,
		Data:        img.data,
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.metrics.ObserveUpload(metrics.OutcomeStale)
			entry.Debug("Detection cancelled")
			return
		}
		entry.WithFields(log.Fields{
			"error":      err.Error(),
			"latency_ms": elapsed.Milliseconds(),
		}).Error("Error detecting objects")
		s.fail(sess, upload, entry.Data, metrics.OutcomeError, detection.MessageDetectionFailed)
		return
	}

	s.metrics.ObserveDetection(elapsed, len(predictions))
	if predictions == nil {
		predictions = []entity.Detection{}
	}

	kept = sess.finish(upload.requestID, func(state *entity.ViewState) {
		state.Predictions = predictions
		state.Error = nil
		state.Loading = false
	})
	if !kept {
		s.metrics.ObserveUpload(metrics.OutcomeStale)
		entry.Debug("Discarding detections for superseded upload")
		return
	}

	s.metrics.ObserveUpload(metrics.OutcomeSuccess)
	entry.WithFields(log.Fields{
		"objects":    len(predictions),
		"latency_ms": elapsed.Milliseconds(),
	}).Info("Detection successful")
}

func (s *detectionService) fail(sess *session, upload *Upload, fields log.Fields, outcome string, message string) {
	kept := sess.finish(upload.requestID, func(state *entity.ViewState) {
		msg := message
		state.Predictions = []entity.Detection{}
		state.Error = &msg
		state.Loading = false
	})
	if !kept {
		outcome = metrics.OutcomeStale
		s.log.WithFields(fields).Debug("Discarding failure for superseded upload")
	}
	s.metrics.ObserveUpload(outcome)
}

func (s *detectionService) intakeError(fields log.Fields, err error) error {
	switch {
	case errors.Is(err, utils.ErrNoFile):
		return detection.ErrNoFile
	case errors.Is(err, utils.ErrFileTooLarge):
		return detection.ErrFileTooLarge
	case errors.Is(err, utils.ErrUnsupportedFileType):
		return detection.ErrUnsupportedFileType
	default:
		s.log.WithFields(fields).WithField("error", err.Error()).Error("Failed to read dropped file")
		return detection.ErrInternalServerError
	}
}

func (s *detectionService) releasePreview(fields log.Fields, previewID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.previews.Release(ctx, previewID); err != nil {
		s.log.WithFields(fields).WithFields(log.Fields{
			"preview_id": previewID,
			"error":      err.Error(),
		}).Warn("Failed to release preview")
	}
}

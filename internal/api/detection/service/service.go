package detectionService

import (
	"HawkVision/internal/api/detection"
	"HawkVision/internal/entity"
	"HawkVision/pkg/detector"
	"HawkVision/pkg/metrics"
	"HawkVision/pkg/overlay"
	"HawkVision/pkg/preview"
	"HawkVision/pkg/utils"
	"mime/multipart"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const DefaultSessionTTL = 30 * time.Minute

type IDetectionService interface {
	Drop(ctx context.Context, sessionID string, files []*multipart.FileHeader) (*Upload, error)
	State(sessionID string) (entity.ViewState, error)
	Overlay(sessionID string, el overlay.DisplayedImage) (detection.OverlayResponse, error)
	Summary(sessionID string) (detection.SummaryResponse, error)
	Preview(ctx context.Context, sessionID string, previewID string) (preview.Image, error)
	Subscribe(sessionID string) (<-chan entity.ViewState, func(), error)
	CloseSession(ctx context.Context, sessionID string) error
	ExpireIdle(ctx context.Context, now time.Time) int
	StartJanitor(ctx context.Context, interval time.Duration)
	Shutdown(ctx context.Context)
}

type detectionService struct {
	log        *logrus.Logger
	detector   detector.IDetector
	previews   preview.IPreviewStore
	utils      utils.IUtils
	metrics    metrics.IMetrics
	sessionTTL time.Duration
	now        func() time.Time

	// base is cancelled on Shutdown and parents every in-flight upload.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*session
}

func NewDetectionService(
	log *logrus.Logger,
	detector detector.IDetector,
	previews preview.IPreviewStore,
	utils utils.IUtils,
	metrics metrics.IMetrics,
	sessionTTL time.Duration,
) IDetectionService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	base, cancel := context.WithCancel(context.Background())

	return &detectionService{
		log:        log,
		detector:   detector,
		previews:   previews,
		utils:      utils,
		metrics:    metrics,
		sessionTTL: sessionTTL,
		now:        time.Now,
		base:       base,
		cancel:     cancel,
		sessions:   make(map[string]*session),
	}
}

func (s *detectionService) session(sessionID string) (*session, error) {
	if sessionID == "" {
		return nil, detection.ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = newSession(sessionID)
		s.sessions[sessionID] = sess
		s.metrics.SetActiveSessions(len(s.sessions))
	}
	sess.touch(s.now())

	return sess, nil
}

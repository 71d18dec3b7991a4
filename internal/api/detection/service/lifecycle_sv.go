package detectionService

import (
	"HawkVision/pkg/log"
	"time"

	"golang.org/x/net/context"
)

func (s *detectionService) CloseSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.metrics.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()

	if !ok {
		return nil
	}

	s.teardown(sess)
	return nil
}

func (s *detectionService) teardown(sess *session) {
	if previewID := sess.teardown(); previewID != "" {
		s.releasePreview(log.Fields{"session_id": sess.id}, previewID)
	}
}

// ExpireIdle drops sessions nobody has touched for longer than the session
// TTL and that have no live subscribers.
func (s *detectionService) ExpireIdle(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.sessionTTL {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.metrics.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()

	for _, sess := range expired {
		s.teardown(sess)
	}

	if len(expired) > 0 {
		s.log.WithField("expired", len(expired)).Info("Expired idle sessions")
	}
	return len(expired)
}

func (s *detectionService) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.base.Done():
				return
			case <-ticker.C:
				s.ExpireIdle(ctx, s.now())
			}
		}
	}()
}

func (s *detectionService) Shutdown(ctx context.Context) {
	s.cancel()

	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		delete(s.sessions, id)
	}
	s.metrics.SetActiveSessions(0)
	s.mu.Unlock()

	for _, sess := range sessions {
		s.teardown(sess)
	}

	if err := s.detector.Close(); err != nil {
		s.log.WithField("error", err.Error()).Warn("Failed to close detector")
	}
}

package preview

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/context"
)

const DefaultTTL = 30 * time.Minute

var ErrNotFound = errors.New("preview not found")

type Image struct {
	ContentType string
	Data        []byte
}

// IPreviewStore holds dropped images for as long as a viewer shows them.
// Every Put must be paired with a Release once the preview is superseded
// or its viewer goes away.
type IPreviewStore interface {
	Put(ctx context.Context, img Image) (string, error)
	Get(ctx context.Context, id string) (Image, error)
	Release(ctx context.Context, id string) error
	Len() int
}

func New() (IPreviewStore, error) {
	ttl := DefaultTTL
	if raw := os.Getenv("PREVIEW_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		ttl = d
	}

	switch os.Getenv("PREVIEW_STORE") {
	case "redis":
		return NewRedisFromEnv(ttl)
	default:
		return NewMemory(), nil
	}
}

type memoryStore struct {
	mu     sync.RWMutex
	images map[string]Image
}

func NewMemory() IPreviewStore {
	return &memoryStore{images: make(map[string]Image)}
}

func (m *memoryStore) Put(_ context.Context, img Image) (string, error) {
	id := uuid.NewString()

	m.mu.Lock()
	m.images[id] = img
	m.mu.Unlock()

	return id, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	img, ok := m.images[id]
	if !ok {
		return Image{}, ErrNotFound
	}
	return img, nil
}

func (m *memoryStore) Release(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.images, id)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}

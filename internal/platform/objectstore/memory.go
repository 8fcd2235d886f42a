package objectstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory ObjectStore used in development mode and tests.
// Presigned URLs are fake but stable, so handlers can be exercised end to end
// without an S3 backend.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) PresignUpload(_ context.Context, contentType string) (*PresignedUpload, error) {
	key, err := NewKey(contentType)
	if err != nil {
		return nil, err
	}
	return &PresignedUpload{
		URL:       "memory://upload/" + key,
		Key:       key,
		ExpiresAt: time.Now().Add(UploadPresignTTL),
	}, nil
}

func (m *MemoryStore) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	if !TrustedKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return "memory://download/" + key, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) error {
	if len(data) > MaxObjectBytes {
		return fmt.Errorf("%w: %s", ErrObjectTooLarge, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = memoryObject{contentType: contentType, data: stored}
	return nil
}

// Len reports how many objects the store holds.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

package blob

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

const memoryBaseURL = "https://blobs.local"

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in a map. It backs demo mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) URL(key string) string {
	return memoryBaseURL + "/" + key
}

func (m *MemoryStore) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = memoryObject{data: buf, contentType: contentType}
	return m.URL(key), nil
}

func (m *MemoryStore) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	key, ok := strings.CutPrefix(rawURL, memoryBaseURL+"/")
	if !ok {
		return nil, fmt.Errorf("blob.MemoryStore.Fetch %q: %w", rawURL, domain.ErrNotFound)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("blob.MemoryStore.Fetch %q: %w", key, domain.ErrNotFound)
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

func (m *MemoryStore) Delete(_ context.Context, rawURL string) error {
	key, ok := strings.CutPrefix(rawURL, memoryBaseURL+"/")
	if !ok {
		return fmt.Errorf("blob.MemoryStore.Delete %q: %w", rawURL, domain.ErrNotFound)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports the number of stored objects. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

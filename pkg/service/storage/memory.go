package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
)

// Object is a file held by the memory storage
type Object struct {
	Data        []byte
	ContentType string
}

// Memory keeps uploaded files in process memory. Used in development and tests.
type Memory struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

var _ interfaces.ObjectStorage = (*Memory)(nil)

// NewMemory creates an empty memory storage serving URLs below baseURL
func NewMemory(baseURL string) *Memory {
	if baseURL == "" {
		baseURL = "memory://files"
	}
	return &Memory{
		baseURL: baseURL,
		objects: make(map[string]Object),
	}
}

// Put stores data under path
func (m *Memory) Put(_ context.Context, objectPath string, data io.Reader, contentType string) (string, error) {
	name := objectName("", objectPath)
	if name == "" {
		return "", goerr.New("object path is empty")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to read object data", goerr.V("object", name))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = Object{Data: buf.Bytes(), ContentType: contentType}

	return objectURL(m.baseURL, name), nil
}

// Delete removes the object at path
func (m *Memory) Delete(_ context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName("", objectPath))
	return nil
}

// Get returns a stored object
func (m *Memory) Get(objectPath string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectName("", objectPath)]
	return obj, ok
}

// Len returns the number of stored objects
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

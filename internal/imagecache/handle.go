// Package imagecache fetches artwork bytes and hands them out as
// process-local handles with explicit release semantics.
package imagecache

import "sync"

// Handle is a process-local reference to fetched image bytes. It stands
// in for the runtime-managed blob URL of a browser: the bytes live only
// for the lifetime of the process and the handle value must never be
// persisted. Release frees the bytes; a released handle returns nil.
type Handle struct {
	mu       sync.Mutex
	data     []byte
	mimeType string
	released bool
}

// NewHandle wraps raw image bytes in a handle. Intended for the cache
// and for tests.
func NewHandle(data []byte, mimeType string) *Handle {
	return &Handle{data: data, mimeType: mimeType}
}

// Bytes returns the cached image bytes, or nil after Release.
func (h *Handle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

// MIMEType returns the content type reported when the bytes were fetched.
func (h *Handle) MIMEType() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mimeType
}

// Size returns the byte length of the cached image, 0 after Release.
func (h *Handle) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.data)
}

// Release frees the underlying bytes. Safe to call more than once;
// subsequent calls are no-ops.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	h.data = nil
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

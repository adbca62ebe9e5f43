package session

import (
	"errors"
	"sync"

	"github.com/room4-2/OpenOrder/dialogue"
)

// ErrBufferFull is returned when the buffer exceeds its maximum size
var ErrBufferFull = errors.New("attachment buffer full")

// AttachmentBuffer holds files sent as binary frames until the next turn
type AttachmentBuffer struct {
	files     []dialogue.Attachment
	totalSize int
	maxSize   int
	mu        sync.Mutex
}

// NewAttachmentBuffer creates a buffer with the specified maximum size in bytes
func NewAttachmentBuffer(maxSize int) *AttachmentBuffer {
	return &AttachmentBuffer{maxSize: maxSize}
}

// MaxSize returns the maximum buffer size
func (b *AttachmentBuffer) MaxSize() int {
	return b.maxSize
}

// Append adds a file to the buffer.
// Returns ErrBufferFull if adding it would exceed maxSize
func (b *AttachmentBuffer) Append(a dialogue.Attachment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	newSize := b.totalSize + len(a.Data)
	if newSize > b.maxSize {
		return ErrBufferFull
	}

	b.files = append(b.files, a)
	b.totalSize = newSize
	return nil
}

// Flush returns the buffered files in arrival order and clears the buffer
func (b *AttachmentBuffer) Flush() []dialogue.Attachment {
	b.mu.Lock()
	defer b.mu.Unlock()

	files := b.files
	b.files = nil
	b.totalSize = 0
	return files
}

// Clear empties the buffer without returning data
func (b *AttachmentBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.files = nil
	b.totalSize = 0
}

// Size returns the current total buffered bytes
func (b *AttachmentBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalSize
}

// Count returns the number of buffered files
func (b *AttachmentBuffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

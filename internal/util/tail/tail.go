// Package tail provides an io.Writer that keeps only the last N lines written to it.
package tail

import (
	"bytes"
	"strings"
	"sync"
)

// maxLineBytes caps a single unterminated line so a stream without newlines
// cannot grow the buffer without bound.
const maxLineBytes = 64 * 1024

// Buffer retains the last Lines complete lines plus any trailing partial line.
// It is safe for concurrent writes, so it can back both stdout and stderr.
type Buffer struct {
	mu      sync.Mutex
	limit   int
	lines   []string
	partial []byte
	dropped int
	total   int64
}

// New returns a Buffer keeping at most n lines. n <= 0 keeps a single line.
func New(n int) *Buffer {
	if n <= 0 {
		n = 1
	}
	return &Buffer{limit: n}
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			b.partial = append(b.partial, data...)
			if len(b.partial) > maxLineBytes {
				b.partial = b.partial[len(b.partial)-maxLineBytes:]
			}
			break
		}
		b.partial = append(b.partial, data[:i]...)
		b.push(string(b.partial))
		b.partial = b.partial[:0]
		data = data[i+1:]
	}
	return len(p), nil
}

func (b *Buffer) push(line string) {
	if len(line) > maxLineBytes {
		line = line[len(line)-maxLineBytes:]
	}
	b.lines = append(b.lines, line)
	if over := len(b.lines) - b.limit; over > 0 {
		b.lines = append(b.lines[:0], b.lines[over:]...)
		b.dropped += over
	}
}

// Lines returns the retained lines, including a trailing partial line.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.lines)+1)
	out = append(out, b.lines...)
	if len(b.partial) > 0 {
		out = append(out, string(b.partial))
		if over := len(out) - b.limit; over > 0 {
			out = out[over:]
		}
	}
	return out
}

// String joins the retained lines with newlines.
func (b *Buffer) String() string {
	return strings.Join(b.Lines(), "\n")
}

// Dropped reports how many complete lines were discarded.
func (b *Buffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Total reports how many bytes were written overall.
func (b *Buffer) Total() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

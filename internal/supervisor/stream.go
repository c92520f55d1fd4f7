package supervisor

import (
	"bytes"
	"sync"
)

// Stream identifies which pipe a line came from.
type Stream string

// Child output streams.
const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Event is one relayed line of child output.
type Event struct {
	Source string
	Stream Stream
	Line   string
}

// maxLineLen bounds the buffered partial line; longer lines are emitted in
// chunks.
const maxLineLen = 64 * 1024

// lineWriter splits a child's byte stream into lines and hands each one to
// the supervisor. os/exec writes to it from a single goroutine per stream;
// the mutex covers the final Flush racing a late Write.
type lineWriter struct {
	sup    *Supervisor
	name   string
	stream Stream

	mu  sync.Mutex
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)

	start := 0

	for {
		i := bytes.IndexByte(w.buf[start:], '\n')
		if i < 0 {
			break
		}

		w.sup.emit(w.name, w.stream, trimCR(w.buf[start:start+i]))
		start += i + 1
	}

	w.buf = append(w.buf[:0], w.buf[start:]...)

	for len(w.buf) >= maxLineLen {
		w.sup.emit(w.name, w.stream, w.buf[:maxLineLen])
		w.buf = append(w.buf[:0], w.buf[maxLineLen:]...)
	}

	return len(p), nil
}

// Flush emits a trailing line that was not newline-terminated.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.sup.emit(w.name, w.stream, trimCR(w.buf))
		w.buf = w.buf[:0]
	}
}

func trimCR(b []byte) []byte {
	return bytes.TrimSuffix(b, []byte{'\r'})
}

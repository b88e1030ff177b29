// Package camera captures frames, runs the tracker on them and serves the
// annotated result as JPEG.
package camera

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
)

// Buffer holds only the latest encoded frame. Writers never block; readers
// that fall behind skip frames.
type Buffer struct {
	mx      sync.Mutex
	jpeg    []byte
	count   uint64
	updated chan struct{}

	dropped atomic.Uint64
}

func NewBuffer() *Buffer {
	return &Buffer{updated: make(chan struct{})}
}

// Write replaces the latest frame. jpeg must not be modified afterwards.
func (b *Buffer) Write(jpeg []byte) {
	b.mx.Lock()
	b.jpeg = jpeg
	b.count++
	close(b.updated)
	b.updated = make(chan struct{})
	b.mx.Unlock()
}

// Latest returns the newest frame and its sequence number, 0 if none yet.
func (b *Buffer) Latest() ([]byte, uint64) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.jpeg, b.count
}

// Next waits for a frame newer than seq.
func (b *Buffer) Next(ctx context.Context, seq uint64) ([]byte, uint64, error) {
	for {
		b.mx.Lock()
		jpeg, n, ch := b.jpeg, b.count, b.updated
		b.mx.Unlock()
		if n > seq {
			return jpeg, n, nil
		}
		select {
		case <-ctx.Done():
			return nil, seq, ctx.Err()
		case <-ch:
		}
	}
}

// MarkDropped counts a frame that could not be captured or encoded.
func (b *Buffer) MarkDropped() { b.dropped.Add(1) }

// Dropped returns the number of dropped frames.
func (b *Buffer) Dropped() uint64 { return b.dropped.Load() }

// ServeHTTP streams frames as multipart MJPEG until the client goes away.
func (b *Buffer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	var seq uint64
	for {
		jpeg, n, err := b.Next(req.Context(), seq)
		if err != nil {
			return
		}
		seq = n

		_, err = fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg))
		if err == nil {
			_, err = w.Write(jpeg)
		}
		if err == nil {
			_, err = w.Write([]byte("\r\n"))
		}
		if err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

package camera

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/bluefox/agrobot/vision"
)

func TestBuffer_Next(t *testing.T) {
	b := NewBuffer()
	_, n := b.Latest()
	assert.Zero(t, n)

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Write([]byte("one"))
	}()

	jpeg, n, err := b.Next(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "one", string(jpeg))
	assert.Equal(t, uint64(1), n)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err = b.Next(ctx, n)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuffer_ServeHTTP(t *testing.T) {
	b := NewBuffer()
	b.Write([]byte("jpegdata"))

	srv := httptest.NewServer(b)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", line)

	var headers []string
	for {
		line, err = r.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		headers = append(headers, strings.TrimSpace(line))
	}
	assert.Equal(t, []string{"Content-Type: image/jpeg", "Content-Length: 8"}, headers)

	body := make([]byte, 8)
	_, err = io.ReadFull(r, body)
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(body))
}

type fakeSource struct {
	mx     sync.Mutex
	frames int

	// steady disables the failure on every second read
	steady bool
}

func (f *fakeSource) Read(m *gocv.Mat) bool {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.frames++
	if !f.steady && f.frames%2 == 0 {
		return false
	}
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.CopyTo(m)
	return true
}

func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) reads() int {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.frames
}

type countingProcessor struct {
	mx   sync.Mutex
	cols []int
}

func (p *countingProcessor) ProcessFrame(frame *gocv.Mat) vision.Correction {
	p.mx.Lock()
	p.cols = append(p.cols, frame.Cols())
	p.mx.Unlock()
	return vision.None
}

func (p *countingProcessor) count() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return len(p.cols)
}

func TestStream_Run(t *testing.T) {
	proc := &countingProcessor{}
	s := &Stream{
		Source:     &fakeSource{},
		Processor:  proc,
		Buffer:     NewBuffer(),
		Width:      320,
		Height:     240,
		RetryDelay: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return proc.count() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()
	<-done

	jpeg, ok := s.Snapshot()
	require.True(t, ok)
	require.True(t, len(jpeg) > 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2])
	assert.NotZero(t, s.Buffer.Dropped())

	proc.mx.Lock()
	assert.Equal(t, 320, proc.cols[0])
	proc.mx.Unlock()
}

func TestStream_EncodeFailureBacksOff(t *testing.T) {
	src := &fakeSource{steady: true}
	s := &Stream{
		Source:     src,
		Buffer:     NewBuffer(),
		RetryDelay: 20 * time.Millisecond,
		encode: func(gocv.Mat, int) ([]byte, error) {
			return nil, errors.New("encoder broken")
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.NotZero(t, src.reads())
	assert.LessOrEqual(t, src.reads(), 15)
	assert.Equal(t, uint64(src.reads()), s.Buffer.Dropped())
	_, ok := s.Snapshot()
	assert.False(t, ok)
}

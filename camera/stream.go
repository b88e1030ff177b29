package camera

import (
	"context"
	"image"
	"log"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/bluefox/agrobot/vision"
)

// A Source produces raw BGR frames.
type Source interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Open opens a capture device by index ("0") or a file/stream URL.
func Open(device string) (Source, error) {
	var dev interface{} = device
	if id, err := strconv.Atoi(device); err == nil {
		dev = id
	}
	vc, err := gocv.OpenVideoCapture(dev)
	if err != nil {
		return nil, err
	}
	return vc, nil
}

// A FrameProcessor annotates a frame in place.
type FrameProcessor interface {
	ProcessFrame(frame *gocv.Mat) vision.Correction
}

// Stream reads frames from a Source, runs the processor on each and keeps
// the latest JPEG in Buffer.
type Stream struct {
	Source    Source
	Processor FrameProcessor
	Buffer    *Buffer

	Width, Height int
	Quality       int

	// RetryDelay is waited after a failed read or encode.
	RetryDelay time.Duration

	// encode replaces JPEG encoding in tests.
	encode func(img gocv.Mat, quality int) ([]byte, error)
}

func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Run captures until ctx is done. Frames that fail to capture or encode are
// dropped; the loop keeps going.
func (s *Stream) Run(ctx context.Context) {
	img := gocv.NewMat()
	defer img.Close()
	out := gocv.NewMat()
	defer out.Close()

	retry := s.RetryDelay
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}

	pause := func() {
		t := time.NewTimer(retry)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}

	failing := false
	for ctx.Err() == nil {
		if !s.Source.Read(&img) || img.Empty() {
			s.Buffer.MarkDropped()
			if !failing {
				log.Println("ERROR: camera read failed, dropping frames")
				failing = true
			}
			pause()
			continue
		}

		if err := s.handle(img, &out); err != nil {
			s.Buffer.MarkDropped()
			if !failing {
				log.Println("ERROR: encode frame:", err)
				failing = true
			}
			pause()
			continue
		}
		failing = false
	}
}

func (s *Stream) handle(img gocv.Mat, out *gocv.Mat) error {
	if s.Width > 0 && s.Height > 0 {
		gocv.Resize(img, out, image.Pt(s.Width, s.Height), 0, 0, gocv.InterpolationLinear)
	} else {
		img.CopyTo(out)
	}

	if s.Processor != nil {
		s.Processor.ProcessFrame(out)
	}

	q := s.Quality
	if q <= 0 {
		q = 80
	}
	encode := s.encode
	if encode == nil {
		encode = encodeJPEG
	}
	jpeg, err := encode(*out, q)
	if err != nil {
		return err
	}
	s.Buffer.Write(jpeg)
	return nil
}

// Snapshot returns the latest encoded frame, or false if none was captured yet.
func (s *Stream) Snapshot() ([]byte, bool) {
	jpeg, n := s.Buffer.Latest()
	return jpeg, n > 0
}

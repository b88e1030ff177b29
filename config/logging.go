package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFileWriter is an io.Writer that rolls the file over to
// path.1 ... path.N once it grows past maxBytes.
type RotatingFileWriter struct {
	mx       sync.Mutex
	path     string
	maxBytes int64
	backups  int
	file     *os.File
	size     int64
}

// NewRotatingFileWriter opens path for appending. maxBytes <= 0 never rotates.
func NewRotatingFileWriter(path string, maxBytes, backups int) (*RotatingFileWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	w := &RotatingFileWriter{path: path, maxBytes: int64(maxBytes), backups: backups}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mx.Lock()
	defer w.mx.Unlock()

	if w.maxBytes > 0 && w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		w.rotate()
	}
	if w.file == nil {
		return 0, os.ErrClosed
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) Close() error {
	w.mx.Lock()
	defer w.mx.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFileWriter) rotate() {
	w.file.Close()
	w.file = nil

	for i := w.backups; i > 0; i-- {
		src := w.path
		if i > 1 {
			src = fmt.Sprintf("%s.%d", w.path, i-1)
		}
		dst := fmt.Sprintf("%s.%d", w.path, i)
		os.Remove(dst)
		os.Rename(src, dst)
	}
	if w.backups <= 0 {
		os.Remove(w.path)
	}

	if err := w.open(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: reopen log file:", err)
	}
}

// ConfigureLogging points the standard logger at stdout and/or the
// configured log file. The returned func closes the file.
func ConfigureLogging(cfg Log) (func(), error) {
	var writers []io.Writer
	var closers []io.Closer

	if cfg.File != "" {
		rw, err := NewRotatingFileWriter(cfg.File, cfg.MaxBytes, cfg.Backups)
		if err != nil {
			return func() {}, err
		}
		writers = append(writers, rw)
		closers = append(closers, rw)
	}
	if cfg.Stdout || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	log.SetOutput(io.MultiWriter(writers...))
	log.SetFlags(log.Ldate | log.Ltime)

	return func() {
		log.SetOutput(os.Stderr)
		for _, c := range closers {
			c.Close()
		}
	}, nil
}

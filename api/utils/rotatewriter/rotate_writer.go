// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rotatewriter writes to a series of size capped files.
package rotatewriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type Option func(*Writer)

func WithDir(dir string) Option {
	return func(w *Writer) { w.dir = dir }
}

func WithFileBaseName(name string) Option {
	return func(w *Writer) { w.baseName = name }
}

func WithFileMaxSize(size int64) Option {
	return func(w *Writer) { w.maxSize = size }
}

// WithMaxNumberFiles keeps at most n files, zero keeps all.
func WithMaxNumberFiles(n int) Option {
	return func(w *Writer) { w.maxFiles = n }
}

// Writer is safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	dir      string
	baseName string
	maxSize  int64
	maxFiles int

	file *os.File
	size int64
	seq  int
}

func New(opts ...Option) (*Writer, error) {
	w := &Writer{
		dir:      ".",
		baseName: "feepool",
		maxSize:  64 * 1024 * 1024,
	}
	for _, o := range opts {
		o(w)
	}
	if w.maxSize <= 0 {
		return nil, errors.New("max file size must be positive")
	}
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	return w, nil
}

// Start opens the first file.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rotate()
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, io.ErrClosedPipe
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file. Later writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Name returns the path of the file being written.
func (w *Writer) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return ""
	}
	return w.file.Name()
}

func (w *Writer) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return errors.Wrap(err, "close log file")
		}
		w.file = nil
	}
	w.seq++
	// timestamp then sequence, so names sort in creation order
	name := fmt.Sprintf("%s-%s-%06d.log", w.baseName, time.Now().UTC().Format("20060102T150405"), w.seq)
	file, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	w.file = file
	w.size = 0
	return w.prune()
}

func (w *Writer) prune() error {
	if w.maxFiles <= 0 {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(w.dir, w.baseName+"-*.log"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for i := 0; i < len(files)-w.maxFiles; i++ {
		if err := os.Remove(files[i]); err != nil {
			return errors.Wrap(err, "remove old log file")
		}
	}
	return nil
}

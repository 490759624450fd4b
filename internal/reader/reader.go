// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trailguard/internal/logging"
)

// ErrNotFound is returned by Open when the input path is neither a file nor a directory.
var ErrNotFound = errors.New("input path not found")

const (
	// DefaultMaxLineBytes bounds the memory used for a single line.
	DefaultMaxLineBytes = 8 * 1024 * 1024

	initialBufferBytes = 64 * 1024
	utf8BOM            = "\ufeff"
)

// Line is one physical line of an input file.
type Line struct {
	Path   string
	Number int
	Text   string
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxLineBytes sets the longest line the reader accepts. A longer line
// aborts the rest of its file with a warning.
func WithMaxLineBytes(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineBytes = n
		}
	}
}

// WithLogger sets the logger used for per-file warnings.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reader) {
		r.logger = l
	}
}

// Reader produces lines from a file or from every file of a directory.
// It is safe to iterate different files from different goroutines.
type Reader struct {
	root         string
	files        []string
	maxLineBytes int
	logger       zerolog.Logger
	skipped      atomic.Int64
}

// Open resolves path into the list of files to read. No file content is read here.
func Open(path string, opts ...Option) (*Reader, error) {
	r := &Reader{
		root:         path,
		maxLineBytes: DefaultMaxLineBytes,
		logger:       logging.WithComponent("reader"),
	}
	for _, opt := range opts {
		opt(r)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}

	switch {
	case info.Mode().IsRegular():
		r.files = []string{path}
	case info.IsDir():
		files, err := listFiles(path)
		if err != nil {
			return nil, err
		}
		r.files = files
	default:
		return nil, fmt.Errorf("%w: %s is neither a file nor a directory", ErrNotFound, path)
	}

	return r, nil
}

// listFiles returns the regular files directly inside dir, sorted by name.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(full)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			files = append(files, full)
			continue
		}
		if entry.Type().IsRegular() {
			files = append(files, full)
		}
	}
	return files, nil
}

// Root returns the path the reader was opened with.
func (r *Reader) Root() string {
	return r.root
}

// Files returns the files the reader will visit, in order.
func (r *Reader) Files() []string {
	out := make([]string, len(r.files))
	copy(out, r.files)
	return out
}

// SkippedFiles returns how many files could not be opened or fully read so far.
func (r *Reader) SkippedFiles() int {
	return int(r.skipped.Load())
}

// Lines returns every line of every file, file by file.
func (r *Reader) Lines(ctx context.Context) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for _, path := range r.files {
			if ctx.Err() != nil {
				return
			}
			for line := range r.FileLines(ctx, path) {
				if !yield(line) {
					return
				}
			}
		}
	}
}

// FileLines returns the lines of a single file. Open and read failures are
// logged and end the sequence for that file only.
func (r *Reader) FileLines(ctx context.Context, path string) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		src, closeFn, err := openSource(path)
		if err != nil {
			r.skipped.Add(1)
			r.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
			return
		}
		defer closeFn()

		scanner := bufio.NewScanner(src)
		scanner.Buffer(make([]byte, 0, min(initialBufferBytes, r.maxLineBytes)), r.maxLineBytes)
		scanner.Split(scanLines)

		number := 0
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			number++
			text := scanner.Text()
			if number == 1 {
				text = strings.TrimPrefix(text, utf8BOM)
			}
			if !yield(Line{Path: path, Number: number, Text: text}) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			r.skipped.Add(1)
			r.logger.Warn().
				Err(err).
				Str("path", path).
				Int("after_line", number).
				Msg("read failed, rest of file skipped")
		}
	}
}

// openSource opens path, unwrapping gzip when the name ends in .gz.
func openSource(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if !strings.EqualFold(filepath.Ext(path), ".gz") {
		return f, func() { _ = f.Close() }, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("open gzip stream: %w", err)
	}
	return gz, func() {
		_ = gz.Close()
		_ = f.Close()
	}, nil
}

// scanLines is a bufio.SplitFunc that treats \n, \r\n and a lone \r as line
// terminators and strips them.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// Need the next byte to tell \r from \r\n.
				return 0, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

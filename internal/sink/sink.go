// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package sink writes alerts incrementally to a single JSON array file.
//
// The file is opened with "[\n", every alert is appended as a two-space
// indented object separated by ",\n", and Close writes "\n]\n". Until Close
// runs the file is an unterminated array; a crashed run leaves a truncated
// artifact rather than a corrupt one in the middle.
package sink

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trailguard/internal/logging"
	"github.com/tomtom215/trailguard/internal/models"
)

const (
	arrayOpen  = "[\n"
	separator  = ",\n"
	arrayClose = "\n]\n"
	indent     = "  "
)

// Option configures a Sink.
type Option func(*Sink)

// WithFsync controls whether the file is synced after every alert. Default true.
func WithFsync(enabled bool) Option {
	return func(s *Sink) { s.fsync = enabled }
}

// WithLogger sets the logger used for write warnings.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// outputFile is the part of *os.File the sink uses.
type outputFile interface {
	io.Writer
	io.StringWriter
	Sync() error
	Close() error
}

// Sink is an append-only JSON array writer. All methods are safe for
// concurrent use and serialise on one mutex, so objects never interleave.
type Sink struct {
	mu       sync.Mutex
	path     string
	file     outputFile
	fsync    bool
	logger   zerolog.Logger
	wrote    bool
	broken   bool
	closed   bool
	count    int
	failures int
	buf      bytes.Buffer
}

// Open creates or truncates path and writes the array opener.
func Open(path string, opts ...Option) (*Sink, error) {
	s := &Sink{
		path:   path,
		fsync:  true,
		logger: logging.WithComponent("sink"),
	}
	for _, opt := range opts {
		opt(s)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}
	if _, err := f.WriteString(arrayOpen); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("initialize output %s: %w", path, err)
	}
	s.file = f
	return s, nil
}

// Path returns the output file path.
func (s *Sink) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Write appends one alert. It never fails: encoding or I/O errors, and writes
// to a closed or unopened sink, are logged and counted in Failures.
func (s *Sink) Write(alert models.Alert) {
	if s == nil {
		logging.Warn().Str("threat_type", alert.ThreatType).Msg("alert written to uninitialized sink, dropped")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil || s.closed {
		s.failures++
		s.logger.Warn().
			Str("path", s.path).
			Str("threat_type", alert.ThreatType).
			Msg("alert written to closed sink, dropped")
		return
	}
	if s.broken {
		s.failures++
		s.logger.Warn().
			Str("path", s.path).
			Str("threat_type", alert.ThreatType).
			Msg("alert dropped, output damaged by an earlier partial write")
		return
	}

	s.buf.Reset()
	if s.wrote {
		s.buf.WriteString(separator)
	}
	s.buf.WriteString(indent)

	enc := json.NewEncoder(&s.buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(indent, indent)
	if err := enc.Encode(alert); err != nil {
		s.failures++
		s.logger.Warn().Err(err).Str("threat_type", alert.ThreatType).Msg("failed to encode alert")
		return
	}
	out := bytes.TrimRight(s.buf.Bytes(), "\n")

	if n, err := s.file.Write(out); err != nil {
		s.failures++
		// Bytes that reached the file cannot be taken back; stop appending.
		s.broken = n > 0
		s.logger.Warn().Err(err).Int("written", n).Str("path", s.path).Msg("failed to write alert")
		return
	}
	if s.fsync {
		if err := s.file.Sync(); err != nil {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("failed to sync output")
		}
	}

	s.wrote = true
	s.count++
}

// Close terminates the array and closes the file. Closing twice, or closing
// a nil sink, is a no-op.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil || s.closed {
		return nil
	}
	s.closed = true

	_, werr := s.file.WriteString(arrayClose)
	var serr error
	if s.fsync {
		serr = s.file.Sync()
	}
	cerr := s.file.Close()
	s.file = nil

	switch {
	case werr != nil:
		return fmt.Errorf("finalize output %s: %w", s.path, werr)
	case serr != nil:
		return fmt.Errorf("sync output %s: %w", s.path, serr)
	case cerr != nil:
		return fmt.Errorf("close output %s: %w", s.path, cerr)
	}
	return nil
}

// Count returns the number of alerts written.
func (s *Sink) Count() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Failures returns the number of alerts that could not be written.
func (s *Sink) Failures() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

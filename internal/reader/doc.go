// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

// Package reader turns an input path (a single log file or a directory of
// log files) into a lazy sequence of text lines.
//
// # Behavior
//
//   - A directory is read one directly contained regular file at a time, in
//     lexicographic name order. Sub-directories are ignored.
//   - Lines are produced on demand through iter.Seq; memory use is bounded by
//     the longest line (WithMaxLineBytes), never by file size.
//   - Line terminators (\n, \r\n and a lone \r) are stripped.
//   - Files ending in .gz are decompressed transparently.
//   - A file that cannot be opened or read is logged and skipped; its siblings
//     are still read.
//   - A path that is neither a file nor a directory fails Open with ErrNotFound.
//
// # Usage
//
//	r, err := reader.Open("/var/log/trail")
//	if errors.Is(err, reader.ErrNotFound) {
//	    // bad input path
//	}
//	for line := range r.Lines(ctx) {
//	    fmt.Println(line.Path, line.Number, line.Text)
//	}
package reader

// Trailguard - Cloud Threat Detection Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailguard

package detection

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

// DefaultExfilThresholdBytes is the object-retrieval size above which a read
// from a sensitive bucket is treated as exfiltration.
const DefaultExfilThresholdBytes int64 = 1_000_000_000

// DefaultKnownBadIPs is the built-in indicator list.
var DefaultKnownBadIPs = []string{
	"203.0.113.66",
	"198.51.100.23",
	"192.0.2.200",
	"45.155.205.0/24",
}

// DefaultSensitiveBuckets is the built-in list of buckets holding regulated data.
var DefaultSensitiveBuckets = []string{
	"prod-customer-data",
	"finance-reports",
	"pii-exports",
	"backup-credentials",
}

// ErrInvalidIndicator is returned for a known-bad entry that is neither an IP nor a CIDR prefix.
var ErrInvalidIndicator = errors.New("invalid IP indicator")

// ReferenceData holds the lookup tables rules consult. It is immutable after
// construction and safe for concurrent use.
type ReferenceData struct {
	addrs     map[netip.Addr]struct{}
	prefixes  []netip.Prefix
	buckets   map[string]struct{}
	threshold int64
}

// NewReferenceData builds reference data. Entries in knownBadIPs may be single
// addresses or CIDR prefixes; blank entries are ignored. A threshold of 0
// selects DefaultExfilThresholdBytes.
func NewReferenceData(knownBadIPs, sensitiveBuckets []string, exfilThreshold int64) (*ReferenceData, error) {
	if exfilThreshold < 0 {
		return nil, fmt.Errorf("exfiltration threshold must not be negative: %d", exfilThreshold)
	}
	if exfilThreshold == 0 {
		exfilThreshold = DefaultExfilThresholdBytes
	}

	ref := &ReferenceData{
		addrs:     make(map[netip.Addr]struct{}, len(knownBadIPs)),
		buckets:   make(map[string]struct{}, len(sensitiveBuckets)),
		threshold: exfilThreshold,
	}

	for _, raw := range knownBadIPs {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidIndicator, entry, err)
			}
			ref.prefixes = append(ref.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidIndicator, entry, err)
		}
		ref.addrs[addr.Unmap()] = struct{}{}
	}

	for _, raw := range sensitiveBuckets {
		if name := strings.TrimSpace(raw); name != "" {
			ref.buckets[name] = struct{}{}
		}
	}

	return ref, nil
}

// DefaultReferenceData returns reference data built from the built-in lists.
func DefaultReferenceData() *ReferenceData {
	ref, err := NewReferenceData(DefaultKnownBadIPs, DefaultSensitiveBuckets, DefaultExfilThresholdBytes)
	if err != nil {
		panic(err) // built-in lists are constant
	}
	return ref
}

// IsKnownBadIP reports whether ip is listed or falls inside a listed prefix.
// Values that are not IP addresses, such as service hostnames, never match.
func (r *ReferenceData) IsKnownBadIP(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if _, ok := r.addrs[addr]; ok {
		return true
	}
	return slices.ContainsFunc(r.prefixes, func(p netip.Prefix) bool {
		return p.Contains(addr)
	})
}

// IsSensitiveBucket reports whether name is a sensitive bucket. Matching is exact.
func (r *ReferenceData) IsSensitiveBucket(name string) bool {
	_, ok := r.buckets[name]
	return ok
}

// ExceedsExfilThreshold reports whether n is strictly greater than the threshold.
func (r *ReferenceData) ExceedsExfilThreshold(n float64) bool {
	return n > float64(r.threshold)
}

// ExfilThreshold returns the exfiltration threshold in bytes.
func (r *ReferenceData) ExfilThreshold() int64 {
	return r.threshold
}

// KnownBadCount returns the number of listed addresses and prefixes.
func (r *ReferenceData) KnownBadCount() int {
	return len(r.addrs) + len(r.prefixes)
}

// SensitiveBucketCount returns the number of sensitive buckets.
func (r *ReferenceData) SensitiveBucketCount() int {
	return len(r.buckets)
}

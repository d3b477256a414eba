// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package imagepool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Ref is a content fingerprint identifying a pooled image blob.
//
// Identical content always yields the same Ref for a given Fingerprinter;
// the default strategy is cheap sampling, not a cryptographic hash, so
// distinct content collides only with low (not zero) probability. Refs
// double as persistent store keys.
type Ref string

// IsZero reports whether r is the empty ref.
func (r Ref) IsZero() bool {
	return r == ""
}

// Fingerprinter derives a Ref from blob content.
//
// Implementations must be deterministic and side-effect free: the same
// bytes yield the same Ref within and across process runs. The pool's
// public contract does not change with the strategy, so a stronger hash
// can be swapped in via WithFingerprinter.
type Fingerprinter interface {
	Fingerprint(blob []byte) Ref
}

// SampleSize is the number of bytes sampled from each end of the blob
// by SampleFingerprinter.
const SampleSize = 32

// SampleFingerprinter fingerprints a blob as its length plus hex samples
// of the first and last SampleSize bytes.
//
// This is a deliberately cheap content signature: it distinguishes any
// two blobs that differ in length or in their edges, which covers the
// realistic duplicate case (the same file registered twice). Large blobs
// differing only in the middle can collide; use SHA256Fingerprinter when
// that matters.
type SampleFingerprinter struct{}

// Fingerprint implements Fingerprinter.
func (SampleFingerprinter) Fingerprint(blob []byte) Ref {
	n := len(blob)
	head := blob
	if n > SampleSize {
		head = blob[:SampleSize]
	}
	tail := blob
	if n > SampleSize {
		tail = blob[n-SampleSize:]
	}
	return Ref(fmt.Sprintf("img-%d-%s-%s", n, hex.EncodeToString(head), hex.EncodeToString(tail)))
}

// SHA256Fingerprinter fingerprints a blob as the full SHA-256 of its
// content (64 hex chars), eliminating practical collision risk at the
// cost of hashing every byte.
type SHA256Fingerprinter struct{}

// Fingerprint implements Fingerprinter.
func (SHA256Fingerprinter) Fingerprint(blob []byte) Ref {
	sum := sha256.Sum256(blob)
	return Ref("img-sha256-" + hex.EncodeToString(sum[:]))
}

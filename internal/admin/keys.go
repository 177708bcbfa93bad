// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// # License Keys

const (
	keyAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyGroups      = 4
	keyGroupLength = 4

	MinKeyQuantity = 1
	MaxKeyQuantity = 100
)

// KeyDuration is how long a key grants access once redeemed.
type KeyDuration string

const (
	KeyDurationDay      KeyDuration = "1d"
	KeyDurationWeek     KeyDuration = "7d"
	KeyDurationMonth    KeyDuration = "30d"
	KeyDurationLifetime KeyDuration = "lifetime"
)

// Valid reports whether d is a known duration.
func (d KeyDuration) Valid() bool {
	_, ok := keyDurations[d]
	return ok
}

// Period returns the access period. Lifetime keys return 0.
func (d KeyDuration) Period() time.Duration {
	return keyDurations[d]
}

var keyDurations = map[KeyDuration]time.Duration{
	KeyDurationDay:      24 * time.Hour,
	KeyDurationWeek:     7 * 24 * time.Hour,
	KeyDurationMonth:    30 * 24 * time.Hour,
	KeyDurationLifetime: 0,
}

// KeyStatus is the lifecycle state of a key.
type KeyStatus string

const (
	KeyStatusActive   KeyStatus = "active"
	KeyStatusRedeemed KeyStatus = "redeemed"
	KeyStatusRevoked  KeyStatus = "revoked"
)

// LicenseKey is one generated key.
type LicenseKey struct {
	ID          string      `json:"id"`
	Key         string      `json:"key"`
	Duration    KeyDuration `json:"duration"`
	Status      KeyStatus   `json:"status"`
	GeneratedBy string      `json:"generated_by"`
	RedeemedBy  string      `json:"redeemed_by,omitempty"`
	RedeemedAt  *time.Time  `json:"redeemed_at,omitempty"`
	AssignedTo  string      `json:"assigned_to,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

/*
GenerateKey draws one XXXX-XXXX-XXXX-XXXX key over A-Z0-9 from random.

Bytes that would bias the alphabet are rejected rather than folded, so every
character is uniformly distributed.

Parameters:
  - random: io.Reader (crypto/rand.Reader in production)

Returns:
  - string: The formatted key
  - error: Failures reading from random
*/
func GenerateKey(random io.Reader) (string, error) {
	const limit = 256 - 256%len(keyAlphabet)

	var builder strings.Builder
	builder.Grow(keyGroups*keyGroupLength + keyGroups - 1)

	buffer := make([]byte, keyGroups*keyGroupLength)
	written := 0
	for written < keyGroups*keyGroupLength {
		if _, err := io.ReadFull(random, buffer); err != nil {
			return "", fmt.Errorf("admin_key_entropy_failed: %w", err)
		}
		for _, b := range buffer {
			if int(b) >= limit {
				continue
			}
			if written > 0 && written%keyGroupLength == 0 {
				builder.WriteByte('-')
			}
			builder.WriteByte(keyAlphabet[int(b)%len(keyAlphabet)])
			written++
			if written == keyGroups*keyGroupLength {
				break
			}
		}
	}
	return builder.String(), nil
}

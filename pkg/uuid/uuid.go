// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid issues the identifiers of accounts, sessions, license keys and
notifications.

New returns version 7 values: they sort by creation time, which keeps the
PostgreSQL primary-key indexes append-only.
*/
package uuid

import "github.com/google/uuid"

// canonicalLength is the length of the 8-4-4-4-12 text form.
const canonicalLength = 36

// New generates a new UUIDv7 string.
//
// It panics only when the system entropy source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}
	return id.String()
}

// Valid reports whether s is a UUID in canonical 8-4-4-4-12 form, any version.
// Braced, URN and hyphen-less forms are rejected.
func Valid(s string) bool {
	if len(s) != canonicalLength {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/essence/pkg/uuid"
)

/*
TestNew verifies that identifiers are valid and ordered by creation.
*/
func TestNew(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	assert.True(t, uuid.Valid(first))
	assert.Equal(t, byte('7'), first[14], "version nibble")
	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, first[:13], second[:13], "timestamp prefix")
}

/*
TestValid verifies that only the canonical text form is accepted.
*/
func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"0190a6e4-2f1c-7cc3-9d1e-5b7f3c2a1e00", true},
		{"0190A6E4-2F1C-7CC3-9D1E-5B7F3C2A1E00", true},
		{"0190a6e42f1c7cc39d1e5b7f3c2a1e00", false},
		{"{0190a6e4-2f1c-7cc3-9d1e-5b7f3c2a1e00}", false},
		{"urn:uuid:0190a6e4-2f1c-7cc3-9d1e-5b7f3c2a1e00", false},
		{"0190a6e4-2f1c-7cc3-9d1e-5b7f3c2a1eZZ", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, uuid.Valid(tt.input))
		})
	}
}

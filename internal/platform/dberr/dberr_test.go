// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/dberr"
)

/*
TestWrap verifies the classification of driver errors.
*/
func TestWrap(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no_rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), http.StatusNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{"foreign_key", &pgconn.PgError{Code: "23503", ConstraintName: "fk_user"}, http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "select_user")
			appError := apperr.As(wrapped)
			require.NotNil(t, appError)
			assert.Equal(t, tt.status, appError.HTTPStatus)
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "noop"))
	assert.True(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, dberr.IsUniqueViolation(errors.New("x")))
}

/*
TestWrapRow verifies the resource name on missing rows and pass-through otherwise.
*/
func TestWrapRow(t *testing.T) {
	missing := apperr.As(dberr.WrapRow(pgx.ErrNoRows, "Session", "find_session"))
	require.NotNil(t, missing)
	assert.Equal(t, "Session not found", missing.Message)

	reset := errors.New("connection reset")
	failed := dberr.WrapRow(reset, "Session", "find_session")
	assert.True(t, apperr.HasCode(failed, apperr.CodeInternal))
	assert.ErrorIs(t, failed, reset)
}

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"libris/internal/apperr"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"unique", &pq.Error{Code: codeUniqueViolation}, apperr.KindConflict},
		{"foreign key", &pq.Error{Code: codeForeignKeyViolation}, apperr.KindNotFound},
		{"check", &pq.Error{Code: codeCheckViolation}, apperr.KindValidation},
		{"serialization", fmt.Errorf("commit: %w", &pq.Error{Code: codeSerializationFailure}), apperr.KindConflict},
		{"other driver error", &pq.Error{Code: "57014"}, apperr.KindInternal},
		{"plain", errors.New("connection reset"), apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, apperr.KindOf(MapError(tt.err)))
		})
	}
}

func TestMapErrorKeepsClassifiedErrors(t *testing.T) {
	sentinel := apperr.Conflict("already_returned", "loan already returned")

	assert.Same(t, sentinel, MapError(sentinel))
	assert.NoError(t, MapError(nil))
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: codeUniqueViolation})))
	assert.False(t, IsUniqueViolation(errors.New("x")))
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", sql.ErrNoRows)))
}

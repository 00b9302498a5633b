package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/turtacn/scholar-etl/pkg/errors"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"wrapped deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"fk violation", &pgconn.PgError{Code: "23503"}, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(driver.ErrBadConn))
	assert.True(t, IsConnectionError(&pgconn.PgError{Code: "08006"}))
	assert.False(t, IsConnectionError(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsConnectionError(errors.New("syntax")))
	assert.False(t, IsConnectionError(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil, "x"))
	assert.True(t, pkgerrors.IsTransient(classify(&pgconn.PgError{Code: "40P01"}, "x")))
	assert.True(t, pkgerrors.IsCode(classify(driver.ErrBadConn, "x"), pkgerrors.ErrCodeStoreConnection))
	assert.True(t, pkgerrors.IsCode(classify(&pgconn.PgError{Code: "22P02"}, "x"), pkgerrors.ErrCodeDatabaseError))
	assert.True(t, pkgerrors.IsCode(classify(context.Canceled, "x"), pkgerrors.ErrCodeTimeout))
	assert.False(t, pkgerrors.IsTransient(classify(&pgconn.PgError{Code: "23505"}, "x")))
}

//Personal.AI order the ending

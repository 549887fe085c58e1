package credsql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func errIs(target error) assert.ErrorAssertionFunc {
	return func(t assert.TestingT, err error, msgAndArgs ...any) bool {
		return assert.ErrorIs(t, err, target, msgAndArgs...)
	}
}

var errUnknown = errors.New("unknown error")

func Test_handlePgError(t *testing.T) {
	tests := []struct {
		name      string
		inputErr  error
		errAssert assert.ErrorAssertionFunc
		wantOk    bool
	}{
		{
			name:      "disk full",
			inputErr:  &pgconn.PgError{Code: "53100", Message: "could not extend file"},
			errAssert: errIs(ErrStorageRefused),
			wantOk:    true,
		},
		{
			name:      "read only transaction",
			inputErr:  fmt.Errorf("exec: %w", &pgconn.PgError{Code: "25006"}),
			errAssert: errIs(ErrStorageRefused),
			wantOk:    true,
		},
		{
			name:      "unique violation is not a refusal",
			inputErr:  &pgconn.PgError{Code: "23505"},
			errAssert: assert.Error,
			wantOk:    false,
		},
		{
			name:      "Unknown error",
			inputErr:  errUnknown,
			errAssert: errIs(errUnknown),
			wantOk:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotErr, ok := handlePgError(tt.inputErr)
			if !tt.errAssert(t, gotErr, fmt.Sprintf("handlePgError() error %v", gotErr)) {
				return
			}

			assert.Equal(t, tt.wantOk, ok, "handlePgError() OK = %v, want = %v", ok, tt.wantOk)
		})
	}
}

package credsql

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStorageRefused is returned when postgres refuses a write for capacity or
// read-only reasons, the cases the credential store falls back on.
var ErrStorageRefused = errors.New("postgres refused the write")

func handlePgError(err error) (error, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err, false
	}

	switch pgErr.Code {
	case "53100", "53200", "25006": // disk_full, out_of_memory, read_only_sql_transaction
		return fmt.Errorf("%w: %s", ErrStorageRefused, pgErr.Message), true
	default:
		return err, false
	}
}

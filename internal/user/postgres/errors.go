package postgres

import (
	stderrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/frahmantamala/account-admin/internal/user"
)

const pgUniqueViolation = "23505"

const uniqueIndexPrefix = "uk_sys_user_"

// translateError turns a unique index violation from either driver into a
// *user.DuplicateKeyError naming the column.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &user.DuplicateKeyError{Field: fieldFromIndex(pgErr.ConstraintName), Cause: err}
	}

	var liteErr sqlite3.Error
	if stderrors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return &user.DuplicateKeyError{Field: fieldFromSQLiteMessage(liteErr.Error()), Cause: err}
	}
	return err
}

func fieldFromIndex(name string) string {
	return strings.TrimPrefix(name, uniqueIndexPrefix)
}

// fieldFromSQLiteMessage reads "UNIQUE constraint failed: sys_user.phone".
func fieldFromSQLiteMessage(msg string) string {
	_, cols, ok := strings.Cut(msg, "constraint failed: ")
	if !ok {
		return user.FieldUserName
	}
	first, _, _ := strings.Cut(cols, ",")
	if i := strings.LastIndex(first, "."); i >= 0 {
		first = first[i+1:]
	}
	return strings.TrimSpace(first)
}

package db

import (
	"context"
	"database/sql"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// countApproved returns the number of approved confessions as seen by q.
// Inside the approval transaction this includes the row just approved, which
// makes it the public label of that row.
func countApproved(ctx context.Context, q queryer) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM confessions WHERE approved = ?", statusApproved).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

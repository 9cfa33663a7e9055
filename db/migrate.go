package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Values stored in confessions.approved.
const (
	statusPending  = 0
	statusApproved = 1
	statusRejected = 2
)

// createTables 如果数据库中不存在必要的表，则创建它们。
// The layout matches databases created by earlier versions of the bot, so
// existing files keep working.
func createTables(ctx context.Context, db *sql.DB) error {
	createConfessionsTableSQL := `
	CREATE TABLE IF NOT EXISTS confessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		user_id TEXT,
		approved INTEGER DEFAULT 0
	);`

	if _, err := db.ExecContext(ctx, createConfessionsTableSQL); err != nil {
		return fmt.Errorf("create confessions table: %w", err)
	}

	createStatusIndexSQL := `CREATE INDEX IF NOT EXISTS idx_confessions_approved ON confessions(approved);`
	if _, err := db.ExecContext(ctx, createStatusIndexSQL); err != nil {
		return fmt.Errorf("create status index: %w", err)
	}

	return addPublishedColumn(ctx, db)
}

// addPublishedColumn adds the marker set once an approved confession is
// posted publicly. Rows approved before the column existed were posted by the
// version that wrote them and count as published.
func addPublishedColumn(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info('confessions') WHERE name = 'published'").Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect confessions table: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin published migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "ALTER TABLE confessions ADD COLUMN published INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("add published column: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE confessions SET published = 1 WHERE approved = ?", statusApproved); err != nil {
		return fmt.Errorf("backfill published column: %w", err)
	}
	return tx.Commit()
}

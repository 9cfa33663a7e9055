package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"confessbot/apperr"
	"confessbot/model"
)

// rowScanner is an interface that can be satisfied by *sql.Row or *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSubmission scans a row into a Submission struct.
func scanSubmission(scanner rowScanner) (*model.Submission, error) {
	var (
		sub     model.Submission
		content string
		userID  sql.NullString
		status  sql.NullInt64
	)
	if err := scanner.Scan(&sub.ID, &content, &userID, &status); err != nil {
		return nil, err
	}

	payload, err := decodePayload(content)
	if err != nil {
		return nil, fmt.Errorf("decode confession %d: %w", sub.ID, err)
	}
	sub.Payload = payload
	sub.SubmitterID = userID.String

	switch status.Int64 {
	case statusApproved:
		sub.Status = model.StatusApproved
	case statusRejected:
		sub.Status = model.StatusRejected
	default:
		sub.Status = model.StatusPending
	}
	return &sub, nil
}

func encodePayload(p model.Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodePayload accepts rows written by older versions, which stored an
// empty imageUrl instead of omitting it.
func decodePayload(content string) (model.Payload, error) {
	var p model.Payload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return model.Payload{}, err
	}
	if p.ImageURL != nil {
		p.ImageURL = model.OptionalString(*p.ImageURL)
	}
	return p, nil
}

// Create inserts a new pending confession and returns its id.
func (s *Store) Create(ctx context.Context, payload model.Payload, submitterID string) (int64, error) {
	content, err := encodePayload(payload)
	if err != nil {
		return 0, apperr.Wrap(apperr.Storage, "encode confession", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO confessions (content, user_id, approved) VALUES (?, ?, ?)",
		content, submitterID, statusPending,
	)
	if err != nil {
		return 0, apperr.Wrap(apperr.Storage, "insert confession", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Wrap(apperr.Storage, "read confession id", err)
	}
	return id, nil
}

// Get retrieves a confession by id regardless of its status.
func (s *Store) Get(ctx context.Context, id int64) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, content, user_id, approved FROM confessions WHERE id = ?", id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "confession %d does not exist", id)
		}
		return nil, apperr.Wrap(apperr.Storage, "get confession", err)
	}
	return sub, nil
}

// GetPending retrieves a confession only while it is still pending.
func (s *Store) GetPending(ctx context.Context, id int64) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, content, user_id, approved FROM confessions WHERE id = ? AND approved = ?",
		id, statusPending)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.NotFound, "confession %d is not pending", id)
		}
		return nil, apperr.Wrap(apperr.Storage, "get pending confession", err)
	}
	return sub, nil
}

// MarkApproved moves a pending confession to approved.
func (s *Store) MarkApproved(ctx context.Context, id int64) error {
	return markTerminal(ctx, s.db, id, statusApproved)
}

// MarkRejected moves a pending confession to rejected.
func (s *Store) MarkRejected(ctx context.Context, id int64) error {
	return markTerminal(ctx, s.db, id, statusRejected)
}

// CountApproved returns the number of approved confessions.
func (s *Store) CountApproved(ctx context.Context) (int, error) {
	n, err := countApproved(ctx, s.db)
	if err != nil {
		return 0, apperr.Wrap(apperr.Storage, "count approved confessions", err)
	}
	return n, nil
}

// Approve marks a pending confession approved and returns its public label
// in the same transaction.
func (s *Store) Approve(ctx context.Context, id int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.Storage, "begin approve transaction", err)
	}
	defer tx.Rollback() // Rollback on error

	if err := markTerminal(ctx, tx, id, statusApproved); err != nil {
		return 0, err
	}

	label, err := countApproved(ctx, tx)
	if err != nil {
		return 0, apperr.Wrap(apperr.Storage, "count approved confessions", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Wrap(apperr.Storage, "commit approve transaction", err)
	}
	return label, nil
}

// MarkPublished records that an approved confession was posted publicly.
func (s *Store) MarkPublished(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE confessions SET published = 1 WHERE id = ? AND approved = ?",
		id, statusApproved)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "mark confession published", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.Storage, "read affected rows", err)
	}
	if n != 1 {
		return apperr.Newf(apperr.NotFound, "confession %d is not approved", id)
	}
	return nil
}

// ListUnpublished returns the ids of approved confessions that never made it
// to the public channel, oldest first.
func (s *Store) ListUnpublished(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM confessions WHERE approved = ? AND published = 0 ORDER BY id",
		statusApproved)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "list unpublished confessions", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Wrap(apperr.Storage, "scan unpublished confession", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "list unpublished confessions", err)
	}
	return ids, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// markTerminal only touches a row that is still pending; zero affected rows
// means somebody else already decided it.
func markTerminal(ctx context.Context, e execer, id int64, status int) error {
	res, err := e.ExecContext(ctx,
		"UPDATE confessions SET approved = ? WHERE id = ? AND approved = ?",
		status, id, statusPending)
	if err != nil {
		return apperr.Wrap(apperr.Storage, "update confession status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.Storage, "read affected rows", err)
	}
	if n != 1 {
		return apperr.Newf(apperr.NotFound, "confession %d is not pending", id)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkbio/internal/domain"
)

// Approval statuses stored in mcp_approvals.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Approval is a destructive tool call waiting for the user. The standalone
// MCP process writes rows; the desktop app resolves them.
type Approval struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Metadata    string `json:"metadata"`
	CreatedAt   string `json:"createdAt"`
}

type ApprovalStore struct {
	db *DB
}

func NewApprovalStore(db *DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

func (s *ApprovalStore) Insert(ctx context.Context, a Approval) error {
	if a.Metadata == "" {
		a.Metadata = "{}"
	}
	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Tool, a.Description, ApprovalPending, a.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// Status returns the status of id, or domain.ErrNotFound.
func (s *ApprovalStore) Status(ctx context.Context, id string) (string, error) {
	var status string
	err := s.db.Conn().QueryRowContext(ctx, `SELECT status FROM mcp_approvals WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("approval %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("approval status: %w", err)
	}
	return status, nil
}

// Resolve marks a pending approval approved or rejected. It reports false
// when id is not pending.
func (s *ApprovalStore) Resolve(ctx context.Context, id string, approved bool) (bool, error) {
	status := ApprovalRejected
	if approved {
		status = ApprovalApproved
	}
	res, err := s.db.Conn().ExecContext(ctx,
		`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = ?`, status, id, ApprovalPending)
	if err != nil {
		return false, fmt.Errorf("resolve approval: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *ApprovalStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Conn().ExecContext(ctx, `DELETE FROM mcp_approvals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete approval: %w", err)
	}
	return nil
}

// Pending lists unresolved approvals, oldest first.
func (s *ApprovalStore) Pending(ctx context.Context) ([]Approval, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, tool, description, status, metadata, created_at FROM mcp_approvals
		 WHERE status = ? ORDER BY created_at, id`, ApprovalPending)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []Approval
	for rows.Next() {
		var a Approval
		if err := rows.Scan(&a.ID, &a.Tool, &a.Description, &a.Status, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/recyclerie/bascule/internal/model"
)

// dateKey collapses a timestamp to the calendar-day key posts are
// scoped by.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// FindPostByActorAndDate returns the post opened by actor on the given
// calendar day, or nil when none exists.
func (s *SQLiteStorage) FindPostByActorAndDate(ctx context.Context, actor string, date time.Time) (*model.Post, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(actor, "actor"); err != nil {
		return nil, err
	}
	return s.findPostTx(ctx, s.db, actor, date)
}

func (s *SQLiteStorage) findPostTx(ctx context.Context, q queryable, actor string, date time.Time) (*model.Post, error) {
	var post model.Post
	var day string

	err := q.QueryRowContext(ctx, `
		SELECT id, actor, date, created_at
		FROM posts
		WHERE actor = ? AND date = ?
	`, actor, dateKey(date)).Scan(&post.ID, &post.Actor, &day, &post.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No post that day
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	post.Date, err = time.Parse("2006-01-02", day)
	if err != nil {
		return nil, fmt.Errorf("failed to parse post date %q: %w", day, err)
	}

	return &post, nil
}

// CreatePost opens a reception post for an actor and day. The caller is
// expected to have checked for an existing post first; a duplicate is a
// domain rejection, not a crash.
func (s *SQLiteStorage) CreatePost(ctx context.Context, post *model.Post) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePost(post); err != nil {
		return err
	}
	return s.createPostTx(ctx, s.db, post)
}

func (s *SQLiteStorage) createPostTx(ctx context.Context, q queryable, post *model.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO posts (actor, date, created_at) VALUES (?, ?, ?)
	`, post.Actor, dateKey(post.Date), post.CreatedAt)
	if err != nil {
		return wrapDomainConstraint(err, "create post")
	}

	post.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get post id: %w", err)
	}

	slog.Debug("created post", "id", post.ID, "actor", post.Actor, "date", dateKey(post.Date))
	return nil
}

// CreateTicket records one drop-off visit under a post.
func (s *SQLiteStorage) CreateTicket(ctx context.Context, ticket *model.Ticket) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTicket(ticket); err != nil {
		return err
	}
	return s.createTicketTx(ctx, s.db, ticket)
}

func (s *SQLiteStorage) createTicketTx(ctx context.Context, q queryable, ticket *model.Ticket) error {
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO tickets (post_id, reference, notes, created_at) VALUES (?, ?, ?, ?)
	`, ticket.PostID, ticket.Reference, ticket.Notes, ticket.CreatedAt)
	if err != nil {
		return wrapDomainConstraint(err, "create ticket")
	}

	ticket.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ticket id: %w", err)
	}

	return nil
}

// CreateLine records one weighed item under a ticket. The category must
// be active and the weight positive; violations are domain rejections.
func (s *SQLiteStorage) CreateLine(ctx context.Context, line *model.Line) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLine(line); err != nil {
		return err
	}
	return s.createLineTx(ctx, s.db, line)
}

func (s *SQLiteStorage) createLineTx(ctx context.Context, q queryable, line *model.Line) error {
	if line.WeightKg <= 0 {
		return fmt.Errorf("%w: weight %.2f must be positive", ErrDomainRejected, line.WeightKg)
	}

	var categoryActive bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM categories WHERE id = ? AND is_active = 1)
	`, line.CategoryID).Scan(&categoryActive)
	if err != nil {
		return fmt.Errorf("failed to check category: %w", err)
	}
	if !categoryActive {
		return fmt.Errorf("%w: category %d is not active", ErrDomainRejected, line.CategoryID)
	}

	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO lines (ticket_id, category_id, weight_kg, destination, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, line.TicketID, line.CategoryID, line.WeightKg, line.Destination, line.Notes, line.CreatedAt)
	if err != nil {
		return wrapDomainConstraint(err, "create line")
	}

	line.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get line id: %w", err)
	}

	return nil
}

// wrapDomainConstraint maps SQLite constraint violations (uniqueness,
// checks, foreign keys) onto ErrDomainRejected so bulk callers can skip
// the offending row. Anything else stays an unexpected error.
func wrapDomainConstraint(err error, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s: %v", ErrDomainRejected, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

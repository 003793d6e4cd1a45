// Package storage provides the data persistence layer for the bascule application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/recyclerie/bascule/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidWeight = errors.New("weight must be positive")
	ErrZeroDate      = errors.New("date cannot be zero")

	// ErrDomainRejected marks a validation-style persistence failure:
	// the record violates a domain rule and may be skipped by callers
	// that process rows in bulk. Anything not wrapping this sentinel is
	// an unexpected failure and must abort.
	ErrDomainRejected = errors.New("domain rule rejected")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateMapping(m *model.CategoryMapping) error {
	if m == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if err := validateString(m.SourceNormalized, "mapping.SourceNormalized"); err != nil {
		return err
	}
	if err := validateString(m.Provider, "mapping.Provider"); err != nil {
		return err
	}
	if m.CategoryID <= 0 {
		return fmt.Errorf("%w: mapping.CategoryID", ErrNilParameter)
	}
	return nil
}

func validatePost(p *model.Post) error {
	if p == nil {
		return fmt.Errorf("%w: post", ErrNilParameter)
	}
	if err := validateString(p.Actor, "post.Actor"); err != nil {
		return err
	}
	if p.Date.IsZero() {
		return fmt.Errorf("%w: post.Date", ErrZeroDate)
	}
	return nil
}

func validateTicket(t *model.Ticket) error {
	if t == nil {
		return fmt.Errorf("%w: ticket", ErrNilParameter)
	}
	if t.PostID <= 0 {
		return fmt.Errorf("%w: ticket.PostID", ErrNilParameter)
	}
	if err := validateString(t.Reference, "ticket.Reference"); err != nil {
		return err
	}
	return nil
}

func validateLine(l *model.Line) error {
	if l == nil {
		return fmt.Errorf("%w: line", ErrNilParameter)
	}
	if l.TicketID <= 0 {
		return fmt.Errorf("%w: line.TicketID", ErrNilParameter)
	}
	if l.CategoryID <= 0 {
		return fmt.Errorf("%w: line.CategoryID", ErrNilParameter)
	}
	return nil
}

package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/recyclerie/bascule/internal/model"
	"github.com/recyclerie/bascule/internal/storage"
)

// dateGroup is the per-day unit of work: one post, one ticket, one line
// per row.
type dateGroup struct {
	date time.Time
	rows []validRow
}

// Execute applies a human-approved mapping to the canonical CSV and
// writes reception records. The whole run happens inside a single
// storage transaction: domain rejections (and rows whose category is
// outside the approved mapping) are recorded and skipped, while any
// other persistence failure rolls everything back and returns with no
// report.
func (imp *Importer) Execute(ctx context.Context, r io.Reader, approved model.ApprovedMapping) (*model.ExecutionReport, error) {
	file, err := readCanonical(r)
	if err != nil {
		return nil, err
	}

	valid, rowErrs := imp.validateRows(file.rows)

	report := &model.ExecutionReport{
		RunID:  uuid.NewString(),
		Errors: rowErrs,
	}

	// Rows with an unmapped category still anchor their date group: the
	// post and ticket for that day are created, only the line is skipped.
	groups := groupByDate(valid)

	tx, err := imp.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i, group := range groups {
		if imp.opts.Progress != nil {
			imp.opts.Progress(group.date, i+1, len(groups))
		}

		post, err := tx.FindPostByActorAndDate(ctx, imp.opts.Actor, group.date)
		if err != nil {
			return nil, fmt.Errorf("failed to look up post for %s: %w", group.date.Format("2006-01-02"), err)
		}
		if post != nil {
			report.PostsReused++
		} else {
			post = &model.Post{Actor: imp.opts.Actor, Date: group.date}
			if err := tx.CreatePost(ctx, post); err != nil {
				return nil, fmt.Errorf("failed to create post for %s: %w", group.date.Format("2006-01-02"), err)
			}
			report.PostsCreated++
		}

		ticket := &model.Ticket{
			PostID:    post.ID,
			Reference: ticketReference(report.RunID, group.date),
			Notes:     fmt.Sprintf("Import legacy %s", report.RunID),
		}
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return nil, fmt.Errorf("failed to create ticket for %s: %w", group.date.Format("2006-01-02"), err)
		}
		report.TicketsCreated++

		for _, row := range group.rows {
			resolved, ok := approved.Mappings[row.category]
			if !ok {
				report.Errors = append(report.Errors,
					fmt.Sprintf("row %d: category %q not in approved mapping", row.number, row.category))
				continue
			}

			line := &model.Line{
				TicketID:    ticket.ID,
				CategoryID:  resolved.CategoryID,
				WeightKg:    row.weightKg,
				Destination: row.destination,
				Notes:       row.notes,
			}
			if err := tx.CreateLine(ctx, line); err != nil {
				if errors.Is(err, storage.ErrDomainRejected) {
					report.Errors = append(report.Errors,
						fmt.Sprintf("row %d: %v", row.number, err))
					continue
				}
				return nil, fmt.Errorf("failed to create line for row %d: %w", row.number, err)
			}
			report.LinesImported++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	report.TotalErrors = len(report.Errors)

	slog.Info("import executed",
		"run_id", report.RunID,
		"posts_created", report.PostsCreated,
		"posts_reused", report.PostsReused,
		"tickets_created", report.TicketsCreated,
		"lines_imported", report.LinesImported,
		"errors", report.TotalErrors)

	return report, nil
}

// groupByDate buckets valid rows by calendar day, days ascending, row
// order preserved inside each day.
func groupByDate(rows []validRow) []dateGroup {
	byDay := make(map[string]*dateGroup)
	for _, row := range rows {
		key := row.date.Format("2006-01-02")
		g, ok := byDay[key]
		if !ok {
			g = &dateGroup{date: row.date}
			byDay[key] = g
		}
		g.rows = append(g.rows, row)
	}

	groups := make([]dateGroup, 0, len(byDay))
	for _, g := range byDay {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].date.Before(groups[j].date)
	})
	return groups
}

// ticketReference builds the human-visible receipt identifier for an
// imported day, unique per run and date.
func ticketReference(runID string, date time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(runID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("IMP-%s-%s", date.Format("20060102"), short)
}

package model

// ExecutionReport summarizes one execute call. Errors holds per-row
// failure strings for rows that were skipped, not aborted on.
type ExecutionReport struct {
	RunID          string   `json:"run_id"`
	Errors         []string `json:"errors"`
	PostsCreated   int      `json:"posts_created"`
	PostsReused    int      `json:"posts_reused"`
	TicketsCreated int      `json:"tickets_created"`
	LinesImported  int      `json:"lines_imported"`
	TotalErrors    int      `json:"total_errors"`
}

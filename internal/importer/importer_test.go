package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/recyclerie/bascule/internal/common"
	"github.com/recyclerie/bascule/internal/model"
	"github.com/recyclerie/bascule/internal/resolve"
	"github.com/recyclerie/bascule/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalHeader = "Date;Catégorie;Poids_kg;Destination;Notes"

func newTestStore(t *testing.T, categories ...string) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	for _, name := range categories {
		_, err := store.CreateCategory(ctx, name)
		require.NoError(t, err)
	}
	return store
}

func newTestImporter(t *testing.T, store *storage.SQLiteStorage, opts Options) *Importer {
	t.Helper()
	return New(store, resolve.New(store, nil, resolve.Config{}), opts)
}

func approvedFor(t *testing.T, store *storage.SQLiteStorage, names ...string) model.ApprovedMapping {
	t.Helper()
	ctx := context.Background()
	approved := model.ApprovedMapping{Mappings: make(map[string]model.ResolvedCategory)}
	for _, name := range names {
		cat, err := store.GetCategoryByName(ctx, name)
		require.NoError(t, err)
		require.NotNil(t, cat, "category %q must exist", name)
		approved.Mappings[name] = model.ResolvedCategory{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Confidence:   100,
		}
	}
	return approved
}

func csvInput(rows ...string) *strings.Reader {
	return strings.NewReader(canonicalHeader + "\n" + strings.Join(rows, "\n") + "\n")
}

func TestAnalyze_HappyPath(t *testing.T) {
	store := newTestStore(t, "Vaisselle", "Meubles")
	imp := newTestImporter(t, store, Options{})

	proposal, err := imp.Analyze(context.Background(), csvInput(
		"25/09/2025;Vaisselle;15,00;Magasin;",
		"2025-09-25;vaiselle;0,57;;lot divers",
	))
	require.NoError(t, err)

	assert.Equal(t, 2, proposal.Stats.TotalLines)
	assert.Equal(t, 2, proposal.Stats.ValidLines)
	assert.Zero(t, proposal.Stats.ErrorLines)
	assert.Equal(t, 2, proposal.Stats.UniqueCategories)
	assert.Equal(t, 2, proposal.Stats.MappedCategories)
	assert.Empty(t, proposal.Unmapped)

	mapped := proposal.Mappings["vaiselle"]
	assert.Equal(t, "Vaisselle", mapped.CategoryName)
}

func TestAnalyze_RowErrorsAccumulate(t *testing.T) {
	store := newTestStore(t, "Vaisselle")
	imp := newTestImporter(t, store, Options{})

	proposal, err := imp.Analyze(context.Background(), csvInput(
		";Vaisselle;1,00;;",           // missing date
		"25/09/2025;;1,00;;",          // missing category
		"25/09/2025;Vaisselle;;;",     // missing weight
		"25/09/2025;Vaisselle;abc;;",  // weight unparseable
		"25/09/2025;Vaisselle;0,00;;", // weight non-positive
		"31/02/2025;Vaisselle;1,00;;", // impossible date
		"25/09/2025;Vaisselle;4,20;Magasin;ok",
	))
	require.NoError(t, err, "data-quality problems must not abort analysis")

	assert.Equal(t, 7, proposal.Stats.TotalLines)
	assert.Equal(t, 1, proposal.Stats.ValidLines)
	assert.Equal(t, 6, proposal.Stats.ErrorLines)
	require.Len(t, proposal.Errors, 6)
	assert.Contains(t, proposal.Errors[0], "row 1")
	assert.Contains(t, proposal.Errors[0], "missing date")
}

func TestAnalyze_HeaderValidation(t *testing.T) {
	store := newTestStore(t)
	imp := newTestImporter(t, store, Options{})

	_, err := imp.Analyze(context.Background(),
		strings.NewReader("Catégorie;Date;Poids_kg;Destination;Notes\nVaisselle;25/09/2025;1,00;;\n"))
	require.Error(t, err, "shuffled columns must be rejected")
	assert.ErrorIs(t, err, common.ErrMissingColumns)
}

func TestAnalyze_Windows1252Header(t *testing.T) {
	store := newTestStore(t, "Vaisselle")
	imp := newTestImporter(t, store, Options{})

	input := "Date;Cat\xe9gorie;Poids_kg;Destination;Notes\n25/09/2025;Vaisselle;1,00;;\n"
	proposal, err := imp.Analyze(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, proposal.Stats.ValidLines)
}

func TestExecute_UnmappedCategoryStillOpensTicket(t *testing.T) {
	store := newTestStore(t, "Vaisselle", "Meubles")
	imp := newTestImporter(t, store, Options{Actor: "import-test"})
	approved := approvedFor(t, store, "Vaisselle")

	report, err := imp.Execute(context.Background(), csvInput(
		"25/09/2025;Vaisselle;15,00;Magasin;",
		"26/09/2025;Meubles;0,57;;", // not in the approved mapping
	), approved)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TicketsCreated)
	assert.Equal(t, 1, report.LinesImported)
	assert.Equal(t, 1, report.TotalErrors)
	assert.Equal(t, 2, report.PostsCreated)
	assert.Zero(t, report.PostsReused)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "not in approved mapping")
}

func TestExecute_ReusesExistingPost(t *testing.T) {
	store := newTestStore(t, "Vaisselle")
	ctx := context.Background()

	date := time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC)
	existing := &model.Post{Actor: "import-test", Date: date}
	require.NoError(t, store.CreatePost(ctx, existing))

	imp := newTestImporter(t, store, Options{Actor: "import-test"})
	report, err := imp.Execute(ctx, csvInput(
		"25/09/2025;Vaisselle;1,00;;",
	), approvedFor(t, store, "Vaisselle"))
	require.NoError(t, err)

	assert.Zero(t, report.PostsCreated)
	assert.Equal(t, 1, report.PostsReused)
	assert.Equal(t, 1, report.TicketsCreated)
	assert.Equal(t, 1, report.LinesImported)
}

func TestExecute_GroupsRowsByDate(t *testing.T) {
	store := newTestStore(t, "Vaisselle", "Meubles")
	imp := newTestImporter(t, store, Options{Actor: "import-test"})

	var seen []string
	imp.opts.Progress = func(date time.Time, current, total int) {
		seen = append(seen, date.Format("2006-01-02"))
	}

	report, err := imp.Execute(context.Background(), csvInput(
		"26/09/2025;Meubles;2,00;;",
		"25/09/2025;Vaisselle;1,00;;",
		"25/09/2025;Meubles;3,50;;",
	), approvedFor(t, store, "Vaisselle", "Meubles"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.PostsCreated)
	assert.Equal(t, 2, report.TicketsCreated)
	assert.Equal(t, 3, report.LinesImported)
	assert.Zero(t, report.TotalErrors)
	assert.Equal(t, []string{"2025-09-25", "2025-09-26"}, seen, "date groups iterate in day order")
}

func TestExecute_DomainRejectionSkipsRow(t *testing.T) {
	store := newTestStore(t, "Vaisselle")
	imp := newTestImporter(t, store, Options{Actor: "import-test"})

	approved := approvedFor(t, store, "Vaisselle")
	approved.Mappings["Fantôme"] = model.ResolvedCategory{CategoryID: 999, CategoryName: "Fantôme", Confidence: 90}

	report, err := imp.Execute(context.Background(), csvInput(
		"25/09/2025;Vaisselle;1,00;;",
		"25/09/2025;Fantôme;2,00;;",
	), approved)
	require.NoError(t, err, "a domain rejection must not abort the run")

	assert.Equal(t, 1, report.LinesImported)
	assert.Equal(t, 1, report.TotalErrors)
	assert.Equal(t, 1, report.TicketsCreated)
}

func TestExecute_FatalErrorRollsBackEverything(t *testing.T) {
	store := newTestStore(t, "Vaisselle", "Meubles")
	imp := newTestImporter(t, store, Options{Actor: "import-test"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	imp.opts.Progress = func(date time.Time, current, total int) {
		if current == 2 {
			cancel() // second date group fails mid-transaction
		}
	}

	_, err := imp.Execute(ctx, csvInput(
		"25/09/2025;Vaisselle;1,00;;",
		"26/09/2025;Meubles;2,00;;",
	), approvedFor(t, store, "Vaisselle", "Meubles"))
	require.Error(t, err)

	// Nothing from the first date group survives the rollback
	post, err := store.FindPostByActorAndDate(context.Background(), "import-test",
		time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, post, "aborted run must leave no posts behind")
}

func TestExecute_ReportCountsAndRunID(t *testing.T) {
	store := newTestStore(t, "Vaisselle")
	imp := newTestImporter(t, store, Options{})

	report, err := imp.Execute(context.Background(), csvInput(
		"25/09/2025;Vaisselle;1,00;;",
		";Vaisselle;1,00;;", // validation error carried into the report
	), approvedFor(t, store, "Vaisselle"))
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.LinesImported)
	assert.Equal(t, 1, report.TotalErrors)
	assert.Len(t, report.Errors, 1)
}

func TestTicketReference(t *testing.T) {
	date := time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC)
	ref := ticketReference("0b7e3d52-1c3a-4f5e-9d6b-2a1f0c9e8d7f", date)
	assert.Equal(t, "IMP-20250925-0B7E3D52", ref)

	other := ticketReference("ffffffff-1c3a-4f5e-9d6b-2a1f0c9e8d7f", date)
	assert.NotEqual(t, ref, other, "reference must distinguish runs")
}

func TestSuggestForNames_NoProviderConfigured(t *testing.T) {
	store := newTestStore(t, "Vaisselle")
	imp := newTestImporter(t, store, Options{})

	proposal, err := imp.SuggestForNames(context.Background(), []string{"bric-à-brac"})
	require.NoError(t, err)
	assert.Empty(t, proposal.Mappings)
	assert.Equal(t, []string{"bric-à-brac"}, proposal.Unmapped)
}

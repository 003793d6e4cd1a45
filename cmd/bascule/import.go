package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recyclerie/bascule/internal/cli"
	"github.com/recyclerie/bascule/internal/config"
	"github.com/recyclerie/bascule/internal/llm"
	"github.com/recyclerie/bascule/internal/model"
	"github.com/recyclerie/bascule/internal/normalize"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the legacy weighing spreadsheet",
		Long: `Import legacy weighing data in three steps: normalize the raw
export into the canonical layout, analyze it to produce a category
mapping for review, then execute the import with the approved mapping.`,
	}

	cmd.AddCommand(importNormalizeCmd())
	cmd.AddCommand(importAnalyzeCmd())
	cmd.AddCommand(importExecuteCmd())
	cmd.AddCommand(importSuggestCmd())

	return cmd
}

func importNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Clean the raw legacy export into the canonical CSV layout",
		Long: `Parse the raw legacy spreadsheet export (totals row, header
synonyms, fill-down dates, comma decimals) and write the canonical
five-column CSV consumed by analyze and execute.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportNormalize,
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	return cmd
}

func runImportNormalize(cmd *cobra.Command, args []string) error {
	input, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = input.Close() }()

	result, err := normalize.New(config.LoadNormalizeOptions()).Normalize(input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("failed to create %s: %w", path, createErr)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := writeCanonicalCSV(out, result.Rows); err != nil {
		return err
	}

	slog.Info("normalization finished",
		"total_rows", result.Stats.TotalRows,
		"final_rows", result.Stats.FinalRows,
		"excluded_rows", result.Stats.ExcludedRows,
		"orphan_rows", result.Stats.OrphanRows)

	return nil
}

func writeCanonicalCSV(out io.Writer, rows []model.Row) error {
	w := csv.NewWriter(out)
	w.Comma = ';'

	if err := w.Write([]string{"Date", "Catégorie", "Poids_kg", "Destination", "Notes"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			row.Category,
			fmt.Sprintf("%.2f", row.WeightKg),
			row.Destination,
			row.Notes,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func importAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Dry-run analysis producing a category mapping for review",
		Long: `Validate the canonical CSV and resolve every distinct category
label through the cache, fuzzy matching, and the configured LLM
fallback. Nothing is written to the database; the resulting mapping is
printed and optionally saved for review and later execution.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportAnalyze,
	}

	cmd.Flags().StringP("output", "o", "", "Write the mapping proposal as JSON for review")
	return cmd
}

func runImportAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	imp, store, err := initImporter(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	input, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = input.Close() }()

	proposal, err := imp.Analyze(ctx, input)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderProposal(proposal))

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := writeMappingArtifact(path, proposal); err != nil {
			return err
		}
		slog.Info("mapping proposal saved", "path", path)
	}

	return nil
}

func importExecuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute <file>",
		Short: "Apply an approved mapping and create reception records",
		Long: `Import the canonical CSV using a reviewed mapping file. Rows are
grouped by date; each date gets one reception post (reused when the
importing actor already opened one that day) and one ticket, with one
line per row. The whole run is one transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportExecute,
	}

	cmd.Flags().StringP("mapping", "m", "", "Approved mapping JSON produced by analyze (required)")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}

func runImportExecute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mappingPath, _ := cmd.Flags().GetString("mapping")
	approved, err := readMappingArtifact(mappingPath)
	if err != nil {
		return err
	}

	imp, store, err := initImporter(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	input, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = input.Close() }()

	var bar *progressbar.ProgressBar
	imp.SetProgress(func(date time.Time, current, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Importing date groups...[reset]"),
			)
		}
		_ = bar.Set(current)
	})

	report, err := imp.Execute(ctx, input, approved)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderReport(report))
	return nil
}

func importSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <name>...",
		Short: "Re-run the LLM fallback for specific category names",
		Long: `Ask the configured fallback provider again for names that stayed
unmapped after analysis. Accepted suggestions go to the resolution
cache, so a subsequent analyze picks them up from tier one.`,
		Args: cobra.ArbitraryArgs,
		RunE: runImportSuggest,
	}

	cmd.Flags().Bool("list-models", false, "List the provider's available models instead of suggesting")
	return cmd
}

func runImportSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if viper.GetString("llm.provider") == "" {
		return fmt.Errorf("llm.provider is not configured; nothing to suggest with")
	}

	if listModels, _ := cmd.Flags().GetBool("list-models"); listModels {
		return runListModels(cmd)
	}

	if len(args) == 0 {
		return fmt.Errorf("at least one category name is required")
	}

	imp, store, err := initImporter(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	proposal, err := imp.SuggestForNames(ctx, args)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderProposal(proposal))
	return nil
}

func runListModels(cmd *cobra.Command) error {
	suggester, err := llm.NewSuggester(config.LoadLLMConfig(), modelsCache)
	if err != nil {
		return err
	}

	models, err := suggester.Models(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%d modèle(s) disponibles (%s)", len(models), suggester.Provider())))
	for _, name := range models {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}

// writeMappingArtifact persists the review artifact: the mappings plus
// the unmapped list, nothing else.
func writeMappingArtifact(path string, proposal *model.MappingProposal) error {
	artifact := model.ApprovedMapping{
		Mappings: proposal.Mappings,
		Unmapped: proposal.Unmapped,
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write mapping to %s: %w", path, err)
	}
	return nil
}

func readMappingArtifact(path string) (model.ApprovedMapping, error) {
	var approved model.ApprovedMapping
	data, err := os.ReadFile(path)
	if err != nil {
		return approved, fmt.Errorf("failed to read mapping %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &approved); err != nil {
		return approved, fmt.Errorf("failed to parse mapping %s: %w", path, err)
	}
	if len(approved.Mappings) == 0 {
		return approved, fmt.Errorf("mapping %s contains no approved entries", path)
	}
	return approved, nil
}

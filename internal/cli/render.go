package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/recyclerie/bascule/internal/model"
)

// RenderProposal formats a mapping proposal for human review: the
// mapped table sorted by source label, the unmapped list, row errors,
// and the aggregate stats.
func RenderProposal(p *model.MappingProposal) string {
	var b strings.Builder

	b.WriteString(FormatTitle("Proposition de correspondances"))
	b.WriteString("\n\n")

	if len(p.Mappings) > 0 {
		b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-30s %-30s %s", "Source", "Catégorie", "Confiance")))
		b.WriteString("\n")

		sources := make([]string, 0, len(p.Mappings))
		for source := range p.Mappings {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		for _, source := range sources {
			mapped := p.Mappings[source]
			line := fmt.Sprintf("%-30s %-30s %6.2f", source, mapped.CategoryName, mapped.Confidence)
			if mapped.Confidence < 90 {
				b.WriteString(WarningStyle.Render(line))
			} else {
				b.WriteString(line)
			}
			b.WriteString("\n")
		}
	}

	if len(p.Unmapped) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatWarning(fmt.Sprintf("%d libellé(s) sans correspondance :", len(p.Unmapped))))
		b.WriteString("\n")
		for _, name := range p.Unmapped {
			b.WriteString(SubtleStyle.Render("  - " + name))
			b.WriteString("\n")
		}
	}

	if len(p.Errors) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatError(fmt.Sprintf("%d ligne(s) en erreur :", len(p.Errors))))
		b.WriteString("\n")
		for _, e := range p.Errors {
			b.WriteString(SubtleStyle.Render("  - " + e))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(renderAnalyzeStats(p.Stats))
	return b.String()
}

func renderAnalyzeStats(s model.AnalyzeStats) string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render(ChartIcon + " Statistiques"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Lignes : %d au total, %d valides, %d en erreur\n",
		s.TotalLines, s.ValidLines, s.ErrorLines)
	fmt.Fprintf(&b, "  Catégories : %d distinctes, %d résolues, %d sans correspondance\n",
		s.UniqueCategories, s.MappedCategories, s.UnmappedCategories)
	if s.Provider != "" {
		fmt.Fprintf(&b, "  Fournisseur : %s (%d résolution(s))\n", s.Provider, s.LLMMapped)
	}
	return b.String()
}

// RenderReport formats an execution report.
func RenderReport(r *model.ExecutionReport) string {
	var b strings.Builder

	b.WriteString(FormatTitle("Rapport d'import"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  Run : %s\n", r.RunID)
	fmt.Fprintf(&b, "  Postes : %d créés, %d réutilisés\n", r.PostsCreated, r.PostsReused)
	fmt.Fprintf(&b, "  Tickets : %d créés\n", r.TicketsCreated)
	fmt.Fprintf(&b, "  Lignes : %d importées\n", r.LinesImported)

	if r.TotalErrors > 0 {
		b.WriteString("\n")
		b.WriteString(FormatWarning(fmt.Sprintf("%d ligne(s) ignorée(s) :", r.TotalErrors)))
		b.WriteString("\n")
		for _, e := range r.Errors {
			b.WriteString(SubtleStyle.Render("  - " + e))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\n")
		b.WriteString(FormatSuccess("Aucune erreur"))
		b.WriteString("\n")
	}

	return b.String()
}

package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"frostbyte/internal/diff"
	"frostbyte/internal/fileutil"
	"frostbyte/internal/frost"
	"frostbyte/internal/model"

	"github.com/schollz/progressbar/v3"
)

const timeFormat = "2006-01-02 15:04:05"

const progressSteps = 100

// newProgressBar renders conversion progress on stderr and clears itself
// when finished so command output stays clean.
func newProgressBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(progressSteps,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

// barProgress adapts a progress bar to the conversion progress callback.
func barProgress(bar *progressbar.ProgressBar) frost.ProgressFunc {
	return func(fraction float64) {
		_ = bar.Set(int(fraction * progressSteps))
	}
}

func finishBar(bar *progressbar.ProgressBar) {
	_ = bar.Finish()
}

func renderSummaries(w io.Writer, rows []model.PathSummary) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No archives found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVERSIONS\tROWS\tORIGINAL\tCOMPRESSED\tSAVED\tLAST ARCHIVED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%.1f%%\t%s\n",
			r.OriginalPath,
			r.VersionCount,
			r.TotalRows,
			fileutil.FormatSize(r.TotalOriginalBytes),
			fileutil.FormatSize(r.TotalCompressedBytes),
			r.AvgCompressionRatio,
			r.LastArchivedAt.Format(timeFormat))
	}
	tw.Flush()
}

func renderVersions(w io.Writer, rows []model.VersionDetail) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No archives found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVERSION\tROWS\tORIGINAL\tCOMPRESSED\tSAVED\tARCHIVED\tARTIFACT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%.1f%%\t%s\t%s\n",
			r.OriginalPath,
			r.Version,
			r.RowCount,
			fileutil.FormatSize(r.OriginalSizeBytes),
			fileutil.FormatSize(r.CompressedSizeBytes),
			r.CompressionRatio,
			r.CreatedAt.Format(timeFormat),
			r.ArchiveFilename)
	}
	tw.Flush()
}

func renderRepoStats(w io.Writer, s *model.RepoStats) {
	fmt.Fprintf(w, "Archives:         %d\n", s.TotalArchives)
	fmt.Fprintf(w, "Total size saved: %s\n", fileutil.FormatSize(s.TotalSizeSaved))
	fmt.Fprintf(w, "Avg compression:  %.1f%%\n", s.AvgCompressionRatio)
}

func renderPathStats(w io.Writer, s *model.PathStats) {
	fmt.Fprintf(w, "Path:          %s\n", s.OriginalPath)
	fmt.Fprintf(w, "Versions:      %d (latest %d)\n", s.VersionCount, s.LatestVersion)
	fmt.Fprintf(w, "Last archived: %s\n", s.LastArchivedAt.Format(timeFormat))
	fmt.Fprintf(w, "Size saved:    %s\n", fileutil.FormatSize(s.SizeSaved))
}

func renderCandidates(w io.Writer, fragment string, candidates []model.Candidate) {
	if len(candidates) == 0 {
		fmt.Fprintf(w, "No archives match %q.\n", fragment)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLATEST VERSION")
	for _, c := range candidates {
		fmt.Fprintf(tw, "%s\t%d\n", c.OriginalPath, c.LatestVersion)
	}
	tw.Flush()
}

// renderValidations prints one line per verified archive plus any issues
// and warnings, and returns how many archives failed.
func renderValidations(w io.Writer, results []model.ValidationResult) int {
	failed := 0
	for _, r := range results {
		if r.Passed {
			fmt.Fprintf(w, "✓ %s@%d\n", r.OriginalPath, r.Version)
		} else {
			failed++
			fmt.Fprintf(w, "✗ %s@%d\n", r.OriginalPath, r.Version)
			for _, issue := range r.Issues {
				fmt.Fprintf(w, "    %s\n", issue)
			}
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "    warning: %s\n", warn)
		}
	}
	return failed
}

func renderDiff(w io.Writer, specA, specB string, r *diff.Result) {
	fmt.Fprintf(w, "Comparing %s -> %s\n", specA, specB)
	if r.Positional {
		fmt.Fprintln(w, "No usable key column; rows compared by position.")
	} else {
		fmt.Fprintf(w, "Key: %s\n", strings.Join(r.KeyColumns, ", "))
	}

	if len(r.SchemaChanges) == 0 && r.RowsAdded == 0 && r.RowsRemoved == 0 && r.RowsModified == 0 {
		fmt.Fprintln(w, "No differences.")
		return
	}

	if len(r.SchemaChanges) > 0 {
		fmt.Fprintln(w, "\nSchema changes:")
		for _, c := range r.SchemaChanges {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}

	fmt.Fprintf(w, "\nRows: +%d added, -%d removed, ~%d modified (%d cells changed)\n",
		r.RowsAdded, r.RowsRemoved, r.RowsModified, r.TotalCellsChanged)

	if len(r.ColumnDiffCounts) > 0 {
		cols := make([]string, 0, len(r.ColumnDiffCounts))
		for col := range r.ColumnDiffCounts {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		fmt.Fprintln(w, "Changed columns:")
		for _, col := range cols {
			fmt.Fprintf(w, "  %s: %d\n", col, r.ColumnDiffCounts[col])
		}
	}

	if len(r.Samples.Added) > 0 {
		fmt.Fprintln(w, "\nSample added rows:")
		for _, row := range r.Samples.Added {
			fmt.Fprintf(w, "  + %s\n", formatRow(row))
		}
	}
	if len(r.Samples.Removed) > 0 {
		fmt.Fprintln(w, "\nSample removed rows:")
		for _, row := range r.Samples.Removed {
			fmt.Fprintf(w, "  - %s\n", formatRow(row))
		}
	}
	if len(r.Samples.Modified) > 0 {
		fmt.Fprintln(w, "\nSample modified rows:")
		for _, m := range r.Samples.Modified {
			fmt.Fprintf(w, "  ~ %s:", formatRow(m.Key))

			cols := make([]string, 0, len(m.Changes))
			for col := range m.Changes {
				cols = append(cols, col)
			}
			sort.Strings(cols)
			for _, col := range cols {
				ch := m.Changes[col]
				fmt.Fprintf(w, " %s: %s -> %s", col, diff.FormatValue(ch.Old), diff.FormatValue(ch.New))
			}
			fmt.Fprintln(w)
		}
	}
}

// formatRow renders a sample row as space-separated key=value pairs in
// column-name order.
func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, diff.FormatValue(row[k])))
	}
	return strings.Join(parts, " ")
}

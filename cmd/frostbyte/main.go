package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"frostbyte/internal/app"
	"frostbyte/internal/fileutil"
	"frostbyte/internal/frost"
	"frostbyte/internal/model"
	"frostbyte/internal/repo"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto distinct process exit codes so
// callers can tell failure modes apart: 1 usage or unexpected, 2 not
// found, 3 ambiguous, 4 unsupported format, 5 integrity, 6 corruption,
// 7 filesystem.
func exitCode(err error) int {
	var (
		notFound  *frost.NotFoundError
		ambiguous *frost.AmbiguousMatchError
		format    *frost.FormatError
		integrity *frost.IntegrityError
		corrupt   *frost.CorruptionError
		ioErr     *frost.IOError
	)
	switch {
	case errors.As(err, &notFound):
		return 2
	case errors.As(err, &ambiguous):
		return 3
	case errors.As(err, &format):
		return 4
	case errors.As(err, &integrity):
		return 5
	case errors.As(err, &corrupt):
		return 6
	case errors.As(err, &ioErr), errors.Is(err, app.ErrNotRepository):
		return 7
	}
	return 1
}

// newApp opens the repository for the given command. The caller must
// defer a.Close().
func newApp(cmd *cobra.Command, op string) (*app.App, error) {
	root, err := app.Root()
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	return app.Open(root, op, verbose)
}

// confirm prints a y/N prompt and reads one line from stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

var rootCmd = &cobra.Command{
	Use:           "frostbyte",
	Short:         "Cold storage for tabular data files",
	Long:          "Frostbyte archives CSV, Excel and Parquet files as compressed parquet\nartifacts, tracks every version in a local manifest, and restores or\ncompares any archived version on demand.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a frostbyte repository",
	Long:  "Creates the .frostbyte directory, manifest database and default\nconfiguration. Reinitializing an existing repository deletes all\narchived data.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		root, err := app.Root()
		if err != nil {
			return err
		}

		layout := repo.New(root)
		if layout.Exists() && !force {
			fmt.Printf("A frostbyte repository already exists at %s.\n", layout.Dir())
			if !confirm("Reinitialize and delete all archived data?") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		a, err := app.Init(root, "init", verbose)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Manager().Initialize(); err != nil {
			return err
		}

		fmt.Printf("✓ Initialized frostbyte repository at %s\n", layout.Dir())
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:     "archive PATH",
	Aliases: []string{"add"},
	Short:   "Archive a tabular file",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "archive")
		if err != nil {
			return err
		}
		defer a.Close()

		bar := newProgressBar("archiving " + filepath.Base(args[0]))
		summary, err := a.Manager().Archive(cmd.Context(), args[0], barProgress(bar))
		finishBar(bar)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Archived %s as version %d\n", summary.OriginalPath, summary.Version)
		fmt.Printf("  %d rows, %s -> %s (%.1f%% saved) in %s\n",
			summary.RowCount,
			fileutil.FormatSize(summary.OriginalSizeBytes),
			fileutil.FormatSize(summary.CompressedSizeBytes),
			summary.CompressionRatio,
			summary.Elapsed.Truncate(time.Millisecond))
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore SPEC",
	Short: "Restore an archived file",
	Long:  "SPEC may be a path, path@version, an artifact filename such as\nsales_v2.parquet, or a unique name fragment.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetInt("version")

		a, err := newApp(cmd, "restore")
		if err != nil {
			return err
		}
		defer a.Close()

		bar := newProgressBar("restoring " + args[0])
		summary, err := a.Manager().Restore(cmd.Context(), args[0], version, barProgress(bar))
		finishBar(bar)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Restored %s (version %d, archived %s)\n",
			summary.OriginalPath,
			summary.Version,
			summary.ArchivedAt.Format(timeFormat))
		fmt.Printf("  %d rows, ~%s in %s\n",
			summary.RowCount,
			fileutil.FormatSize(summary.OriginalSizeBytes),
			summary.Elapsed.Truncate(time.Millisecond))
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:     "ls [FILTER]",
	Aliases: []string{"list"},
	Short:   "List archived files",
	Long:    "Without arguments, prints one summary row per archived path. With a\nfilename filter or --all, prints one row per archived version.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}

		a, err := newApp(cmd, "ls")
		if err != nil {
			return err
		}
		defer a.Close()

		if all || filter != "" {
			rows, err := a.Manager().ListVersions(filter)
			if err != nil {
				return err
			}
			renderVersions(os.Stdout, rows)
			return nil
		}

		rows, err := a.Manager().ListSummaries()
		if err != nil {
			return err
		}
		renderSummaries(os.Stdout, rows)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [PATH]",
	Short: "Show repository or per-file statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "stats")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			ps, err := a.Manager().PathStats(args[0])
			if err != nil {
				return err
			}
			renderPathStats(os.Stdout, ps)
			return nil
		}

		rs, err := a.Manager().Stats()
		if err != nil {
			return err
		}
		renderRepoStats(os.Stdout, rs)
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff SPEC_A SPEC_B",
	Short: "Compare two tabular datasets",
	Long:  "Each SPEC may be a file on disk, an archived path, path@version, an\nartifact filename, or a unique name fragment. Archived specs are read\nstraight from their artifacts without restoring.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, _ := cmd.Flags().GetStringSlice("key")

		a, err := newApp(cmd, "diff")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Manager().Diff(args[0], args[1], keys)
		if err != nil {
			return err
		}
		renderDiff(os.Stdout, args[0], args[1], result)
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge PATH",
	Short: "Delete archived versions",
	Long:  "Deletes the latest version by default, a specific version with\n--version, or every version with --all. Removes both the manifest\nrecords and the parquet artifacts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetInt("version")
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			var prompt string
			switch {
			case all:
				prompt = fmt.Sprintf("Purge ALL versions of %s?", args[0])
			case version > 0:
				prompt = fmt.Sprintf("Purge version %d of %s?", version, args[0])
			default:
				prompt = fmt.Sprintf("Purge the latest version of %s?", args[0])
			}
			if !confirm(prompt) {
				fmt.Println("Aborted.")
				return nil
			}
		}

		a, err := newApp(cmd, "purge")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Manager().Purge(args[0], version, all)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Purged %d archive(s)\n", result.Count)
		for _, p := range result.RemovedPaths {
			fmt.Printf("  removed %s\n", p)
		}
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find FRAGMENT",
	Short: "Search archived files by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "find")
		if err != nil {
			return err
		}
		defer a.Close()

		candidates, err := a.Manager().FindByName(args[0])
		if err != nil {
			return err
		}
		renderCandidates(os.Stdout, args[0], candidates)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [SPEC]",
	Short: "Verify archive integrity",
	Long:  "Checks that archived artifacts exist, are readable, and still match\ntheir manifest records. Without a SPEC every archive is verified.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetInt("version")
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp(cmd, "verify")
		if err != nil {
			return err
		}
		defer a.Close()

		var results []model.ValidationResult
		if len(args) == 1 && !all {
			res, err := a.Manager().Verify(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			results = []model.ValidationResult{*res}
		} else {
			results, err = a.Manager().VerifyAll(cmd.Context())
			if err != nil {
				return err
			}
		}

		if len(results) == 0 {
			fmt.Println("No archives to verify.")
			return nil
		}

		if failed := renderValidations(os.Stdout, results); failed > 0 {
			return fmt.Errorf("%d of %d archive(s) failed verification", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show debug log output")

	initCmd.Flags().Bool("force", false, "Reinitialize without confirmation")

	restoreCmd.Flags().Int("version", 0, "Version to restore (default latest)")

	lsCmd.Flags().Bool("all", false, "List every archived version")

	diffCmd.Flags().StringSlice("key", nil, "Key column(s) for row matching")

	purgeCmd.Flags().Int("version", 0, "Version to purge (default latest)")
	purgeCmd.Flags().Bool("all", false, "Purge every version")
	purgeCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	purgeCmd.MarkFlagsMutuallyExclusive("version", "all")

	verifyCmd.Flags().Int("version", 0, "Version to verify (default latest)")
	verifyCmd.Flags().Bool("all", false, "Verify every archive")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(verifyCmd)
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"snapkeep/internal/app"
	"snapkeep/internal/config"
	"snapkeep/internal/mcp"
	"snapkeep/internal/model"
	"snapkeep/internal/snap"
	"snapkeep/internal/web"
)

const pageSize = 10

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and wires the application. The caller must defer
// app.Close().
func newApp(opts app.Options) (*app.App, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func progressToStderr(status string) {
	fmt.Fprintln(os.Stderr, status)
}

var rootCmd = &cobra.Command{
	Use:   "snapkeep",
	Short: "Point-in-time file snapshots with content-addressed storage",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Storage Dir: %s\n", cfg.Storage.Dir)
		fmt.Printf("Server Addr: %s\n", cfg.Server.Addr)
		return nil
	},
}

// save command
var saveCmd = &cobra.Command{
	Use:   "save PATH",
	Short: "Snapshot a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{Observer: progressToStderr})
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Service().Capture(args[0])
		if report != nil {
			fmt.Printf("Captured %d file(s), %d new snapshot(s)\n",
				report.FilesSeen, report.RecordsCreated)
		}
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore PATH",
	Short: "Restore a file or directory from snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fingerprint, _ := cmd.Flags().GetString("fingerprint")

		a, err := newApp(app.Options{Observer: progressToStderr})
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Service().Restore(args[0], fingerprint)
		if err != nil {
			var ambiguous *snap.AmbiguousSelectorError
			if errors.As(err, &ambiguous) {
				chosen, pickErr := pickFingerprint(ambiguous)
				if pickErr != nil {
					return pickErr
				}
				report, err = a.Service().Restore(args[0], chosen)
			}
		}
		if report != nil {
			for _, rec := range report.Records {
				fmt.Printf("Restored %s (%s)\n", rec.Path, shortFP(rec.Fingerprint))
			}
		}
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		return nil
	},
}

// pickFingerprint lets the user choose among ambiguous candidates. Without a
// TTY there is nobody to ask, so the candidates are printed and the command
// fails.
func pickFingerprint(ambiguous *snap.AmbiguousSelectorError) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Fingerprint prefix %q is ambiguous:\n", ambiguous.Prefix)
		for _, fp := range ambiguous.Candidates {
			fmt.Fprintf(os.Stderr, "  %s\n", fp)
		}
		return "", fmt.Errorf("ambiguous fingerprint prefix %q", ambiguous.Prefix)
	}

	fmt.Printf("Fingerprint prefix %q matches %d snapshots:\n",
		ambiguous.Prefix, len(ambiguous.Candidates))
	for i, fp := range ambiguous.Candidates {
		fmt.Printf("  [%d] %s\n", i+1, fp)
	}
	fmt.Print("Select a snapshot: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading selection: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(ambiguous.Candidates) {
		return "", fmt.Errorf("invalid selection %q", strings.TrimSpace(line))
	}
	return ambiguous.Candidates[n-1], nil
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls [PATH]",
	Short: "List snapshots, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		var records []*model.SnapshotRecord
		if len(args) > 0 {
			// Exact-path history first; fall back to directory scoping.
			records, err = a.Service().History(args[0])
			if err == nil && len(records) == 0 {
				records, err = a.Service().ListDirectory(args[0])
			}
		} else {
			records, err = a.Service().List()
		}
		if err != nil {
			return err
		}
		printRecordPage(records, page)
		return nil
	},
}

// cls command
var clsCmd = &cobra.Command{
	Use:   "cls",
	Short: "Delete snapshots of the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		if !confirm(fmt.Sprintf("Delete all snapshots under %s?", cwd)) {
			fmt.Println("Aborted.")
			return nil
		}

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service().DeleteByPathPrefix(cwd)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d snapshot(s)\n", n)
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search PATTERN",
	Short: "Find snapshots by path substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Service().Search(args[0])
		if err != nil {
			return err
		}
		printRecordPage(records, page)
		return nil
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check PATH",
	Short: "Compare live content against the latest snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Service().Check(args[0])
		if report != nil {
			for _, fc := range report.Files {
				fmt.Printf("%-12s %s\n", fc.State, fc.Path)
			}
			fmt.Printf("%d unchanged, %d modified, %d without snapshots\n",
				report.Unchanged, report.Modified, report.New)
		}
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
		return nil
	},
}

// view command
var viewCmd = &cobra.Command{
	Use:   "view PATH",
	Short: "Print snapshot content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fingerprint, _ := cmd.Flags().GetString("fingerprint")
		maxSize, _ := cmd.Flags().GetInt64("max-size")

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Service().View(args[0], fingerprint, maxSize<<20)
		if err != nil {
			if errors.Is(err, snap.ErrTooLarge) {
				return fmt.Errorf("%w (use 'snapkeep export' instead)", err)
			}
			return err
		}
		if result.Binary {
			fmt.Printf("Snapshot %s is binary (%s); use 'snapkeep export' to write it to a file.\n",
				shortFP(result.Record.Fingerprint), formatSize(result.Record.Size))
			return nil
		}
		fmt.Print(result.Content)
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export PATH",
	Short: "Write snapshot content to a new location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fingerprint, _ := cmd.Flags().GetString("fingerprint")
		dest, _ := cmd.Flags().GetString("dest")
		if dest == "" {
			dest = "."
		}

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Service().Export(args[0], fingerprint, dest)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Printf("Exported to %s\n", out)
		return nil
	},
}

// clear command
var clearCmd = &cobra.Command{
	Use:   "clear [PATH]",
	Short: "Delete snapshot records and reclaim unreferenced blobs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		recursive, _ := cmd.Flags().GetBool("recursive")

		if !all && len(args) == 0 {
			return fmt.Errorf("either PATH or --all is required")
		}

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		var n int64
		switch {
		case all:
			if !confirm("Delete ALL snapshots?") {
				fmt.Println("Aborted.")
				return nil
			}
			n, err = a.Service().DeleteAll()
		case recursive:
			n, err = a.Service().DeleteByPathPrefix(args[0])
		default:
			n, err = a.Service().DeleteByPath(args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d snapshot(s)\n", n)
		return nil
	},
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info FINGERPRINT",
	Short: "Show snapshot details by fingerprint prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Service().Info(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Path:        %s\n", rec.Path)
		fmt.Printf("Fingerprint: %s\n", rec.Fingerprint)
		fmt.Printf("Captured:    %s\n", rec.CapturedAt)
		fmt.Printf("Size:        %s\n", formatSize(rec.Size))
		fmt.Printf("Blob:        %s\n", rec.BlobPath)
		return nil
	},
}

// compare command
var compareCmd = &cobra.Command{
	Use:   "compare PATH",
	Short: "Diff two versions of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		target, _ := cmd.Flags().GetString("target")

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Service().Compare(args[0], source, target)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %s vs %s: %s\n",
			result.Path, result.SourceName, result.TargetName, result.Diff.Summary())
		if !result.Diff.Equal && !result.Diff.Binary {
			fmt.Print(result.Diff.Unified)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Service().Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Snapshots:  %d\n", st.TotalSnapshots)
		fmt.Printf("Total size: %s\n", formatSize(st.TotalBytes))
		fmt.Printf("On disk:    %s\n", formatSize(st.StoredBytes))
		fmt.Printf("Exclusions: %d\n", st.Exclusions)
		return nil
	},
}

// exclusion command
var exclusionCmd = &cobra.Command{
	Use:   "exclusion",
	Short: "Manage exclusion rules for directory walks",
}

var exclusionAddCmd = &cobra.Command{
	Use:   "add PATTERN KIND",
	Short: "Add an exclusion rule (kind: directory, extension, or file)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().AddExclusion(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Exclusion added: %s (%s)\n", args[0], args[1])
		return nil
	},
}

var exclusionRemoveCmd = &cobra.Command{
	Use:   "remove PATTERN",
	Short: "Remove exclusion rules by pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service().RemoveExclusion(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d rule(s)\n", n)
		return nil
	},
}

var exclusionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exclusion rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		rules, err := a.Service().Exclusions()
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			fmt.Println("No exclusion rules configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tPATTERN")
		for _, rule := range rules {
			fmt.Fprintf(w, "%s\t%s\n", rule.Kind, rule.Pattern)
		}
		return w.Flush()
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		a, err := newApp(app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if addr == "" {
			addr = a.Config().Server.Addr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Serving on http://%s\n", addr)
		return web.NewServer(a.Service(), nil).Serve(ctx, addr)
	},
}

// mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout belongs to the protocol; logs must stay off it.
		a, err := newApp(app.Options{QuietLogs: true})
		if err != nil {
			return err
		}
		defer a.Close()

		return mcp.ServeStdio(mcp.New(a.Service()))
	},
}

func shortFP(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// printRecordPage prints one page of records as an aligned table.
func printRecordPage(records []*model.SnapshotRecord, page int) {
	if len(records) == 0 {
		fmt.Println("No snapshots found.")
		return
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(records) {
		fmt.Printf("Page %d is past the end (%d snapshots).\n", page, len(records))
		return
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFINGERPRINT\tCAPTURED\tSIZE\tPATH")
	for _, rec := range records[start:end] {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			rec.ID, shortFP(rec.Fingerprint), rec.CapturedAt, formatSize(rec.Size), rec.Path)
	}
	w.Flush()

	pages := (len(records) + pageSize - 1) / pageSize
	fmt.Printf("%d snapshot(s), page %d/%d\n", len(records), page, pages)
}

// confirm asks for a yes/no answer. Non-interactive runs refuse.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, prompt+" (refused: no terminal for confirmation)")
		return false
	}
	fmt.Print(prompt + " [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	restoreCmd.Flags().StringP("fingerprint", "f", "", "Fingerprint prefix selecting a specific snapshot")
	lsCmd.Flags().IntP("page", "p", 1, "Page of results to show")
	searchCmd.Flags().IntP("page", "p", 1, "Page of results to show")
	viewCmd.Flags().StringP("fingerprint", "f", "", "Fingerprint prefix selecting a specific snapshot")
	viewCmd.Flags().Int64("max-size", 5, "Largest snapshot to print inline, in MiB")
	exportCmd.Flags().StringP("fingerprint", "f", "", "Fingerprint prefix selecting a specific snapshot")
	exportCmd.Flags().StringP("dest", "d", "", "Destination file or directory (default: current directory)")
	clearCmd.Flags().Bool("all", false, "Delete every snapshot")
	clearCmd.Flags().BoolP("recursive", "r", false, "Treat PATH as a directory prefix")
	compareCmd.Flags().StringP("source", "s", "", "Source selector: fingerprint prefix, latest, or current")
	compareCmd.Flags().StringP("target", "t", "", "Target selector: fingerprint prefix, latest, or current")
	serveCmd.Flags().String("addr", "", "Listen address (default: from config)")

	exclusionCmd.AddCommand(exclusionAddCmd)
	exclusionCmd.AddCommand(exclusionRemoveCmd)
	exclusionCmd.AddCommand(exclusionListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(clsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(exclusionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fennel-tools/tabdeck/internal/applog"
	"github.com/fennel-tools/tabdeck/internal/bridge"
	"github.com/fennel-tools/tabdeck/internal/classify"
	"github.com/fennel-tools/tabdeck/internal/export"
	"github.com/fennel-tools/tabdeck/internal/history"
	"github.com/fennel-tools/tabdeck/internal/navsync"
	"github.com/fennel-tools/tabdeck/internal/snapfile"
	"github.com/fennel-tools/tabdeck/internal/storage"
	"github.com/fennel-tools/tabdeck/internal/tabstore"
	"github.com/fennel-tools/tabdeck/internal/titles"
	"github.com/fennel-tools/tabdeck/internal/tui"
	"github.com/fennel-tools/tabdeck/internal/types"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "export":
			runExport(os.Args[2:])
			return
		case "import":
			runImport(os.Args[2:])
			return
		case "history":
			runHistory(os.Args[2:])
			return
		case "routes":
			runRoutes()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("tabdeck", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace name (env: TABDECK_WORKSPACE, default: default)")
	dbPath := fs.String("db", "", "Database file path")
	liveMode := fs.Bool("live", false, "Connect to a running console front-end")
	port := fs.Int("port", 19292, "WebSocket port for live mode")
	baseURL := fs.String("base-url", os.Getenv("TABDECK_BASE_URL"), "Console origin for page title lookups")
	fs.Parse(os.Args[1:])

	ws := resolveWorkspace(*workspace)

	if dir, err := logDir(); err == nil {
		applog.Init(dir)
		defer applog.Close()
	}

	db, err := openDB(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	table := buildTable()

	saved, err := storage.LoadSession(db, ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading session: %v\n", err)
		os.Exit(1)
	}

	store := tabstore.New(table, &storage.DBSaver{DB: db, Workspace: ws})
	store.Restore(saved)

	var (
		syncer *navsync.Synchronizer
		srv    *bridge.Server
		mode   = tui.ModeStandalone
	)
	if *liveMode {
		mode = tui.ModeLive
		srv = bridge.New(*port)
		syncer = navsync.New(store, table, tui.NewBridgeRouter(srv))
	} else {
		router := tui.NewLocalRouter()
		syncer = navsync.New(store, table, router)
		tui.AttachRouter(router, syncer)
	}

	// The address present at startup is the restored active tab.
	if tab := store.ActiveTab(); tab != nil {
		syncer.Bootstrap(tab.URL)
	}

	var resolver *titles.Resolver
	if *baseURL != "" {
		resolver = titles.NewResolver(*baseURL)
	}

	model := tui.NewModel(syncer, ws, mode, srv, resolver)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Keep a history revision of where the session ended up. Unchanged
	// sessions are skipped inside Create.
	if _, _, _, err := history.Create(db, ws, store.Session()); err != nil {
		applog.Error("history.create", err, "workspace", ws)
	}
}

func printHelp() {
	fmt.Print(`tabdeck — tab session manager for the admin console

Usage:
  tabdeck                                        Start the TUI (default)
    --workspace <name>     Workspace name (env: TABDECK_WORKSPACE)
    --db <path>            Database file path
    --live                 Connect to a running console front-end
    --port <n>             WebSocket port for live mode (default: 19292)
    --base-url <origin>    Console origin for page title lookups

  tabdeck export                                 Export the session
    --workspace <name>     Workspace name
    --json                 Export as JSON instead of markdown
    --snap                 Export as a binary session file (requires --out)
    --out <file>           Output file path (default: stdout)

  tabdeck import <file> [--workspace X] [--yes]  Import a session file

  tabdeck history                                Save a revision (only if changed)
  tabdeck history list                           List saved revisions
  tabdeck history diff [rev] [rev2]              Compare revisions or current session
  tabdeck history delete <rev> [--yes]           Delete a revision

  tabdeck routes                                 Print the route table

Environment:
  TABDECK_WORKSPACE    Default workspace (overridden by --workspace)
  TABDECK_BASE_URL     Console origin (overridden by --base-url)
`)
}

func resolveWorkspace(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("TABDECK_WORKSPACE"); env != "" {
		return env
	}
	return "default"
}

func buildTable() *classify.Table {
	table := classify.NewTable()
	routes, err := classify.LoadUserRoutes(classify.UserRoutesPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return table
	}
	table.Merge(routes)
	return table
}

func openDB(path string) (*sql.DB, error) {
	if path == "" {
		var err error
		path, err = storage.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return storage.OpenDB(path)
}

func logDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "tabdeck"), nil
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

func loadSessionOrExit(db *sql.DB, ws string) *types.Session {
	sess, err := storage.LoadSession(db, ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading session: %v\n", err)
		os.Exit(1)
	}
	if sess == nil {
		fmt.Fprintf(os.Stderr, "No session stored for workspace %q.\n", ws)
		os.Exit(1)
	}
	return sess
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace name")
	jsonFlag := fs.Bool("json", false, "Export as JSON instead of markdown")
	snapFlag := fs.Bool("snap", false, "Export as a binary session file")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	fs.Parse(args)

	ws := resolveWorkspace(*workspace)

	db, err := openDB("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	sess := loadSessionOrExit(db, ws)

	if *snapFlag {
		if *outFile == "" {
			fmt.Fprintln(os.Stderr, "Error: --snap requires --out")
			os.Exit(1)
		}
		if err := snapfile.Write(*outFile, sess); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Session exported to %s (%d tabs)\n", *outFile, len(sess.Tabs))
		return
	}

	var output string
	if *jsonFlag {
		output, err = export.JSON(ws, sess)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		output = export.Markdown(ws, sess)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(output)
	}
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace name")
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabdeck import <file> [--workspace name] [--yes]")
		os.Exit(1)
	}

	ws := resolveWorkspace(*workspace)

	sess, err := snapfile.Read(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !*yes && !confirm(fmt.Sprintf("Replace session for workspace %q with %d tabs?", ws, len(sess.Tabs))) {
		fmt.Println("Aborted.")
		return
	}

	db, err := openDB("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.SaveSession(db, ws, sess); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d tabs into workspace %q.\n", len(sess.Tabs), ws)
}

func runHistory(args []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		runHistoryCreate(args)
		return
	}

	subcmd := args[0]
	subArgs := args[1:]

	switch subcmd {
	case "create":
		runHistoryCreate(subArgs)
	case "list":
		runHistoryList(subArgs)
	case "diff":
		runHistoryDiff(subArgs)
	case "delete":
		runHistoryDelete(subArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown history command %q. Use list, diff, or delete.\n", subcmd)
		os.Exit(1)
	}
}

func runHistoryCreate(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace name")
	fs.Parse(args)

	ws := resolveWorkspace(*workspace)

	db, err := openDB("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	sess := loadSessionOrExit(db, ws)

	rev, created, diff, err := history.Create(db, ws, sess)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating revision: %v\n", err)
		os.Exit(1)
	}

	if !created {
		fmt.Printf("No changes since revision #%d\n", rev)
		return
	}

	fmt.Printf("Revision #%d created: %d tabs\n", rev, len(sess.Tabs))
	if diff != nil && (len(diff.Added) > 0 || len(diff.Removed) > 0) {
		fmt.Println()
		fmt.Print(history.FormatDiff(diff))
	}
}

func runHistoryList(args []string) {
	fs := flag.NewFlagSet("history list", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace name")
	fs.Parse(args)

	ws := resolveWorkspace(*workspace)

	db, err := openDB("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	revs, err := storage.ListRevisions(db, ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing revisions: %v\n", err)
		os.Exit(1)
	}

	if len(revs) == 0 {
		fmt.Println("No revisions found.")
		return
	}

	fmt.Printf("%-5s %5s  %-12s  %s\n", "REV", "TABS", "WORKSPACE", "CREATED")
	for _, r := range revs {
		fmt.Printf("%5d %5d  %-12s  %s\n", r.Rev, r.TabCount, r.Workspace, r.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func runHistoryDiff(args []string) {
	fs := flag.NewFlagSet("history diff", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace name")
	fs.Parse(reorderArgs(args))

	ws := resolveWorkspace(*workspace)

	db, err := openDB("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch fs.NArg() {
	case 0, 1:
		rev := 0
		if fs.NArg() == 1 {
			rev, err = strconv.Atoi(fs.Arg(0))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", fs.Arg(0))
				os.Exit(1)
			}
		}
		sess := loadSessionOrExit(db, ws)
		result, err := history.DiffAgainstCurrent(db, ws, rev, sess)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(history.FormatDiff(result))

	case 2:
		rev1, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", fs.Arg(0))
			os.Exit(1)
		}
		rev2, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", fs.Arg(1))
			os.Exit(1)
		}
		result, err := history.DiffRevisions(db, ws, rev1, rev2)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(history.FormatDiff(result))

	default:
		fmt.Fprintln(os.Stderr, "Usage: tabdeck history diff [rev] [rev2] [--workspace name]")
		os.Exit(1)
	}
}

func runHistoryDelete(args []string) {
	fs := flag.NewFlagSet("history delete", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace name")
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabdeck history delete <rev> [--workspace name] [--yes]")
		os.Exit(1)
	}

	rev, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid revision number: %s\n", fs.Arg(0))
		os.Exit(1)
	}

	ws := resolveWorkspace(*workspace)

	if !*yes && !confirm(fmt.Sprintf("Delete revision #%d?", rev)) {
		fmt.Println("Aborted.")
		return
	}

	db, err := openDB("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.DeleteRevision(db, ws, rev); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting revision: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Revision #%d deleted.\n", rev)
}

func runRoutes() {
	table := buildTable()
	fmt.Printf("%-28s %-10s %-16s %s\n", "PREFIX", "ICON", "TITLE", "SINGULAR")
	for _, r := range table.Routes() {
		fmt.Printf("%-28s %-10s %-16s %s\n", r.Prefix, r.Icon, r.Title, r.Singular)
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

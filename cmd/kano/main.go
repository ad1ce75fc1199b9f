// cmd/kano/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"kano/internal/config"
	"kano/internal/debugserver"
	"kano/internal/history"
	"kano/internal/kano"
	"kano/internal/printer"
	"kano/internal/repl"
)

var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"f": "fmt",
	"d": "debug",
	"h": "history",
	"b": "build",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		showVersion()
	case "run":
		runCommand(args[1:])
	case "repl":
		replCommand(args[1:])
	case "fmt":
		fmtCommand(args[1:])
	case "build":
		buildCommand(args[1:])
	case "debug":
		debugCommand(args[1:])
	case "history":
		historyCommand(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", args[0])
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("Kano - a small statically-typed language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kano run <file.kano>        Run a Kano program          (alias: r)")
	fmt.Println("  kano repl                   Start the interactive REPL  (alias: i)")
	fmt.Println("  kano fmt <file.kano>        Reformat a Kano program     (alias: f)")
	fmt.Println("  kano build <file.kano>      Resolve a program without running it (alias: b)")
	fmt.Println("  kano debug <file.kano>      Run under the debug server  (alias: d)")
	fmt.Println("  kano history [--dsn=...]    Show recorded run history   (alias: h)")
	fmt.Println()
	fmt.Println("  kano --version              Show version information")
}

func showVersion() {
	fmt.Printf("kano %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
}

func runCommand(args []string) {
	if len(args) == 0 {
		log.Fatal("run requires a file argument")
	}
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}

	start := time.Now()
	prog, diags := kano.Compile(string(source), filename)
	if diags.HasErrors() {
		printDiagnostics(diags.Strings())
		recordRun(filename, source, strings.Join(diags.Strings(), "\n"), "", 1, time.Since(start))
		os.Exit(1)
	}

	var out strings.Builder
	runErr := kano.Interpret(prog, &out, os.Stdin, 0)
	fmt.Print(out.String())

	exitCode := 0
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		exitCode = 1
	}
	recordRun(filename, source, "", out.String(), exitCode, time.Since(start))
	os.Exit(exitCode)
}

func replCommand(args []string) {
	var stackSize uint64
	for _, a := range args {
		if strings.HasPrefix(a, "--stack=") {
			fmt.Sscanf(strings.TrimPrefix(a, "--stack="), "%d", &stackSize)
		}
	}
	repl.Start(os.Stdin, os.Stdout, stackSize)
}

func fmtCommand(args []string) {
	if len(args) == 0 {
		log.Fatal("fmt requires a file argument")
	}
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}
	scope, diags := kano.Parse(string(source), filename)
	if diags.HasErrors() {
		printDiagnostics(diags.Strings())
		os.Exit(1)
	}
	formatted := printer.New().Format(scope)
	if err := os.WriteFile(filename, []byte(formatted), 0644); err != nil {
		log.Fatalf("could not write file: %v", err)
	}
	fmt.Printf("%s: formatted (%s)\n", filename, humanize.Bytes(uint64(len(formatted))))
}

func buildCommand(args []string) {
	if len(args) == 0 {
		log.Fatal("build requires a file argument")
	}
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}
	_, diags := kano.Compile(string(source), filename)
	if diags.HasErrors() {
		printDiagnostics(diags.Strings())
		os.Exit(1)
	}
	fmt.Printf("%s: resolved cleanly (%s)\n", filename, humanize.Bytes(uint64(len(source))))
}

func debugCommand(args []string) {
	if len(args) == 0 {
		log.Fatal("debug requires a file argument")
	}
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}

	addr := ":7777"
	for _, a := range args[1:] {
		if strings.HasPrefix(a, "--addr=") {
			addr = strings.TrimPrefix(a, "--addr=")
		}
	}

	srv := debugserver.New()
	mux := http.NewServeMux()
	mux.Handle("/ws", srv)
	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		fmt.Printf("debug stream listening on ws://%s/ws\n", addr)
		httpSrv.ListenAndServe()
	}()

	report, err := srv.Run(context.Background(), string(source), filename)
	if err != nil {
		log.Fatalf("debug run failed: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(report)
}

func historyCommand(args []string) {
	dsn := "kano-history.db"
	for _, a := range args {
		if strings.HasPrefix(a, "--dsn=") {
			dsn = strings.TrimPrefix(a, "--dsn=")
		}
	}

	store, err := history.Open(dsn)
	if err != nil {
		log.Fatalf("could not open history store: %v", err)
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), 20)
	if err != nil {
		log.Fatalf("could not read history: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded yet")
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  %-32s exit=%d  %s  %s\n", r.CreatedAt.Format(time.RFC3339), r.SourcePath, r.ExitCode, r.WallTime, humanize.Time(r.CreatedAt))
	}
}

// recordRun persists a run to the default history store, best-effort: a
// history backend being unavailable must never fail `kano run`.
func recordRun(path string, source []byte, diagnostics, stdout string, exitCode int, wall time.Duration) {
	store, err := history.Open("kano-history.db")
	if err != nil {
		return
	}
	defer store.Close()
	store.Record(context.Background(), history.Run{
		SourcePath:  path,
		SourceHash:  history.HashSource(source),
		Diagnostics: diagnostics,
		Stdout:      stdout,
		ExitCode:    exitCode,
		WallTime:    wall,
	})
}

func printDiagnostics(lines []string) {
	colorize := isatty.IsTerminal(os.Stderr.Fd())
	w := bufio.NewWriter(os.Stderr)
	defer w.Flush()
	for _, line := range lines {
		if colorize {
			fmt.Fprintf(w, "\x1b[31m%s\x1b[0m\n", line)
		} else {
			fmt.Fprintln(w, line)
		}
	}
}

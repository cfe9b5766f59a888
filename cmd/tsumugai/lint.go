package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/parser"
	"github.com/kosuke-fujisawa/tsumugai/internal/validator"
)

var lintWatch bool

var lintCmd = &cobra.Command{
	Use:   "lint <file>",
	Short: "Parse and validate a script, printing diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE:  runLint,
}

func init() {
	lintCmd.Flags().BoolVar(&lintWatch, "watch", false, "re-lint on every save")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	path := args[0]

	clean, err := lintOnce(path)
	if err != nil {
		return err
	}
	if !lintWatch {
		if !clean {
			return fmt.Errorf("lint: %s has errors", path)
		}
		return nil
	}

	return watchAndLint(path)
}

// lintOnce parses and validates path once, printing every diagnostic in the
// "--> file:line:col" caret style. It returns whether the script is free of
// error-severity diagnostics.
func lintOnce(path string) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	var diags []diag.Diagnostic
	prog, parseDiags, parseErr := parser.Parse(src)
	diags = append(diags, parseDiags...)

	if prog != nil {
		diags = append(diags, validator.Validate(prog, validator.Options{})...)
	}

	clean := true
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			clean = false
		}
		printDiagnostic(path, src, d)
	}
	if parseErr != nil && len(diags) == 0 {
		return false, parseErr
	}
	return clean, nil
}

func printDiagnostic(path string, src []byte, d diag.Diagnostic) {
	fmt.Printf("%s [%s]\n", d.Severity, d.Code)
	fmt.Printf(" --> %s:%d:%d\n", path, d.Line, d.Column)
	line := sourceLine(src, d.Line)
	if line != "" {
		fmt.Printf("  | %s\n", line)
		fmt.Printf("  | %s^\n", strings.Repeat(" ", max(d.Column-1, 0)))
	}
	fmt.Printf("  = %s\n", d.Message)
	if d.Hint != "" {
		fmt.Printf("  = hint: %s\n", d.Hint)
	}
	fmt.Println()
}

func sourceLine(src []byte, n int) string {
	scanner := bufio.NewScanner(strings.NewReader(string(src)))
	for i := 1; scanner.Scan(); i++ {
		if i == n {
			return scanner.Text()
		}
	}
	return ""
}

// watchAndLint re-lints path every time its containing directory reports a
// write event for it. Each tick parses and validates a brand-new Program —
// no interpreter State survives a reload, so this never contradicts the
// core's "no dynamic script reload mid-execution" rule.
func watchAndLint(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("lint --watch: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("lint --watch: watching %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	fmt.Printf("watching %s for changes (ctrl-c to stop)\n\n", path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Printf("--- %s changed, re-linting ---\n", path)
			if _, err := lintOnce(path); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}

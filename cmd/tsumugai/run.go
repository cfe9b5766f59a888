package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kosuke-fujisawa/tsumugai/internal/config"
	"github.com/kosuke-fujisawa/tsumugai/internal/diag"
	"github.com/kosuke-fujisawa/tsumugai/internal/directive"
	"github.com/kosuke-fujisawa/tsumugai/internal/interp"
	"github.com/kosuke-fujisawa/tsumugai/internal/parser"
	"github.com/kosuke-fujisawa/tsumugai/internal/resolver"
	"github.com/kosuke-fujisawa/tsumugai/internal/state"
	"github.com/kosuke-fujisawa/tsumugai/internal/validator"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Parse, validate, and drive a script interactively in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "host config file (YAML or JSON) with validator thresholds and an asset table")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	sink := diag.NewZerologSink(os.Stderr)

	prog, _, err := parser.Parse(src)
	if err != nil {
		return err
	}

	res := resolver.Resolver(resolver.Default{})
	valOpts := validator.Options{}
	if runConfigPath != "" {
		cfg, err := config.Load(runConfigPath)
		if err != nil {
			return err
		}
		res = cfg.ResolverTable()
		valOpts = cfg.ValidatorOptions()
	}

	for _, d := range validator.Validate(prog, valOpts) {
		sink.Emit(d)
	}

	st := state.New()
	opts := interp.Options{Resolver: res, Sink: sink}
	scanner := bufio.NewScanner(os.Stdin)

	var choose *int
	for {
		next, result, err := interp.Step(st, prog, choose, opts)
		choose = nil
		if err != nil {
			return err
		}
		st = next

		printDirectives(result.Directives)

		switch result.Next {
		case directive.Halt:
			fmt.Println("-- story complete --")
			return nil
		case directive.WaitUser:
			fmt.Fprint(os.Stdout, "(press Enter to continue) ")
			scanner.Scan()
		case directive.WaitBranch:
			idx, err := promptChoice(scanner, branchChoiceCount(result.Directives))
			if err != nil {
				return err
			}
			choose = &idx
		case directive.Next:
			// fall through to the next Step call immediately
		}
	}
}

func branchChoiceCount(directives []directive.Directive) int {
	for _, d := range directives {
		if b, ok := d.(directive.Branch); ok {
			return len(b.Choices)
		}
	}
	return 0
}

func promptChoice(scanner *bufio.Scanner, n int) (int, error) {
	for {
		fmt.Printf("choose [0-%d]: ", n-1)
		if !scanner.Scan() {
			return 0, fmt.Errorf("run: unexpected end of input while waiting for a choice")
		}
		idx, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || idx < 0 || idx >= n {
			fmt.Println("not a valid choice, try again")
			continue
		}
		return idx, nil
	}
}

func printDirectives(directives []directive.Directive) {
	for _, d := range directives {
		switch v := d.(type) {
		case directive.Say:
			fmt.Printf("%s: %s\n", v.Speaker, v.Text)
		case directive.ShowImage:
			fmt.Printf("[image:%s] %s\n", v.Layer, pathOrUnresolved(v.Path))
		case directive.PlayBgm:
			fmt.Printf("[bgm] %s\n", pathOrUnresolved(v.Path))
		case directive.PlaySe:
			fmt.Printf("[se] %s\n", pathOrUnresolved(v.Path))
		case directive.PlayMovie:
			fmt.Printf("[movie] %s\n", pathOrUnresolved(v.Path))
		case directive.Wait:
			fmt.Printf("[wait %.1fs]\n", v.Seconds)
		case directive.Branch:
			for i, choice := range v.Choices {
				fmt.Printf("  %d) %s\n", i, choice)
			}
		case directive.ClearLayer:
			fmt.Printf("[clear:%s]\n", v.Layer)
		case directive.SetVar:
			fmt.Printf("[var %s = %s]\n", v.Name, v.Value)
		case directive.JumpTo:
			// silent: a host terminal doesn't need to announce control flow
		case directive.ReachedLabel:
			// silent
		}
	}
}

func pathOrUnresolved(path *string) string {
	if path == nil {
		return "(unresolved)"
	}
	return *path
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kosuke-fujisawa/tsumugai/internal/ast"
	"github.com/kosuke-fujisawa/tsumugai/internal/codec"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Inspect save files produced by internal/codec",
}

var saveInspectCmd = &cobra.Command{
	Use:   "inspect <file.json>",
	Short: "Decode a save file and pretty-print it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSaveInspect,
}

func init() {
	saveCmd.AddCommand(saveInspectCmd)
	rootCmd.AddCommand(saveCmd)
}

func runSaveInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	// No program is available here, so the fingerprint (if present) is
	// neither checked for staleness nor shown in the output.
	st, err := codec.Load(data, nil, nil)
	if err != nil {
		return err
	}

	view := map[string]interface{}{
		"pc":     st.PC,
		"halted": st.Halted,
	}
	if st.Seed != nil {
		view["seed"] = *st.Seed
	}
	vars := map[string]string{}
	st.Vars.Each(func(name string, value ast.Value) {
		vars[name] = value.String()
	})
	view["vars"] = vars
	if st.Branch != nil {
		choices := make([]string, len(st.Branch.Choices))
		for i, c := range st.Branch.Choices {
			choices[i] = c.Text
		}
		view["pending_choices"] = choices
	}

	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "create <model> [field=value...]",
		Short: "Create a record",
		Long:  "Create a record. Fields come from field=value arguments or a JSON object piped via stdin. Values are parsed as JSON when valid, otherwise kept as strings.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runCreate,
	}

	RootCmd.AddCommand(cmd)
}

func runCreate(cmd *cobra.Command, args []string) {
	var params map[string]any
	if len(args) > 1 {
		filters, err := parseAssignments(args[1:])
		if err != nil {
			exitErr("create", err)
		}
		params = fieldMap(filters)
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			if err := json.Unmarshal(b, &params); err != nil {
				exitErr("parse json", err)
			}
		}
	}
	if len(params) == 0 {
		exitErr("create", fmt.Errorf("fields are required (field=value args or JSON on stdin)"))
	}

	s, c := mustCollection(args[0])
	defer s.Close()

	rec, err := c.Create(cmd.Context(), params)
	if err != nil {
		exitErr("create", err)
	}
	printRecord(rec)
}

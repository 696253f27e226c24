package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update <model> <id> field=value...",
		Short: "Merge fields into a stored record",
		Long:  "Merge the given fields into a stored record. A null value removes the field.",
		Args:  cobra.MinimumNArgs(3),
		Run:   runUpdate,
	}

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	filters, err := parseAssignments(args[2:])
	if err != nil {
		exitErr("update", err)
	}

	s, c := mustCollection(args[0])
	defer s.Close()

	rec, err := c.Find(cmd.Context(), args[1])
	if err != nil {
		exitErr("update", err)
	}
	if err := c.Update(cmd.Context(), rec, fieldMap(filters)); err != nil {
		exitErr("update", err)
	}

	rec, err = c.Find(cmd.Context(), args[1])
	if err != nil {
		exitErr("update", err)
	}
	printRecord(rec)
}

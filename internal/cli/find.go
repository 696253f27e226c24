package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	find := &cobra.Command{
		Use:   "find <model> field=value...",
		Short: "Find records matching every condition",
		Long:  "Find records whose fields equal every given value. The first condition is evaluated by the store, the rest locally.",
		Args:  cobra.MinimumNArgs(2),
		Run:   runFind,
	}

	findOrCreate := &cobra.Command{
		Use:   "find-or-create <model> field=value...",
		Short: "Return the first matching record, creating it if none matches",
		Args:  cobra.MinimumNArgs(2),
		Run:   runFindOrCreate,
	}

	RootCmd.AddCommand(find, findOrCreate)
}

func runFind(cmd *cobra.Command, args []string) {
	filters, err := parseAssignments(args[1:])
	if err != nil {
		exitErr("find", err)
	}

	s, c := mustCollection(args[0])
	defer s.Close()

	recs, err := c.FindBy(cmd.Context(), filters...)
	if err != nil {
		exitErr("find", err)
	}
	printRecords(recs)
}

func runFindOrCreate(cmd *cobra.Command, args []string) {
	filters, err := parseAssignments(args[1:])
	if err != nil {
		exitErr("find-or-create", err)
	}

	s, c := mustCollection(args[0])
	defer s.Close()

	rec, err := c.FindOrCreateBy(cmd.Context(), filters...)
	if err != nil {
		exitErr("find-or-create", err)
	}
	printRecord(rec)
}

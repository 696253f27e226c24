package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Retrieve a record by id",
		Args:  cobra.ExactArgs(2),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	s, c := mustCollection(args[0])
	defer s.Close()

	rec, err := c.Find(cmd.Context(), args[1])
	if err != nil {
		exitErr("get", err)
	}
	printRecord(rec)
}

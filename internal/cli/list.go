package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list <model>",
		Short: "List every record of a model",
		Args:  cobra.ExactArgs(1),
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (0 = all)")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, c := mustCollection(args[0])
	defer s.Close()

	recs, err := c.All(cmd.Context())
	if err != nil {
		exitErr("list", err)
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	printRecords(recs)
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/firerecord/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export [model...]",
		Short: "Export records as JSON",
		Long:  "Export the records of the given models (default: every model) as a JSON object keyed by model name.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openSession()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	names := args
	if len(names) == 0 {
		for _, m := range s.registry.Models() {
			names = append(names, m.Name())
		}
	}

	out := make(map[string][]*model.Record, len(names))
	for _, name := range names {
		c, err := s.collection(name)
		if err != nil {
			exitErr("export", err)
		}
		recs, err := c.All(cmd.Context())
		if err != nil {
			exitErr("export", err)
		}
		if recs == nil {
			recs = []*model.Record{}
		}
		out[c.Model().Name()] = recs
	}
	printJSON(out)
}

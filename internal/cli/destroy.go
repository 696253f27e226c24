package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "destroy-all <model>",
		Short: "Delete every record of a model",
		Args:  cobra.ExactArgs(1),
		Run:   runDestroyAll,
	}

	RootCmd.AddCommand(cmd)
}

func runDestroyAll(cmd *cobra.Command, args []string) {
	s, c := mustCollection(args[0])
	defer s.Close()

	if err := c.DestroyAll(cmd.Context()); err != nil {
		exitErr("destroy-all", err)
	}
	fmt.Printf(`{"ok":true,"model":%q}`+"\n", c.Model().Name())
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/firerecord/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "set <model> <id> <relation> [ref...]",
		Short: "Assign a relation",
		Long: "Assign a relation of a stored record. A has_many relation is replaced by the given ids; " +
			"a belongs_to relation takes exactly one id, or none to clear it.",
		Args: cobra.MinimumNArgs(3),
		Run:  runSet,
	}

	cmd.Flags().Bool("push", false, "Append to a has_many relation instead of replacing it")

	RootCmd.AddCommand(cmd)
}

func runSet(cmd *cobra.Command, args []string) {
	push, _ := cmd.Flags().GetBool("push")
	field, refs := args[2], args[3:]

	s, c := mustCollection(args[0])
	defer s.Close()

	ctx := cmd.Context()
	rec, err := c.Find(ctx, args[1])
	if err != nil {
		exitErr("set", err)
	}

	m := c.Model()
	switch {
	case m.IsHasMany(field) && push:
		for _, id := range refs {
			if err := c.PushHasMany(ctx, rec, field, model.ID(id)); err != nil {
				exitErr("set", err)
			}
		}
	case m.IsHasMany(field):
		if err := c.SetHasMany(ctx, rec, field, model.IDs(refs...)...); err != nil {
			exitErr("set", err)
		}
	case m.IsBelongsTo(field):
		if len(refs) > 1 {
			exitErr("set", fmt.Errorf("%s takes a single id", field))
		}
		var ref model.Ref
		if len(refs) == 1 {
			ref = model.ID(refs[0])
		}
		if err := rec.SetBelongsTo(field, ref); err != nil {
			exitErr("set", err)
		}
		v, _ := rec.Get(field)
		if err := c.Update(ctx, rec, map[string]any{field: v}); err != nil {
			exitErr("set", err)
		}
	default:
		exitErr("set", fmt.Errorf("%s is not a relation of %s", field, m.Name()))
	}
	printRecord(rec)
}

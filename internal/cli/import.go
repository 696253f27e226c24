package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/firerecord/internal/schema"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from JSON",
		Long: "Import records from JSON on stdin, in the format produced by export. " +
			"Every record is created anew; stored ids and relation ids are not remapped.",
		Run: runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var byModel map[string][]map[string]any
	if err := json.Unmarshal(data, &byModel); err != nil {
		exitErr("parse json", err)
	}

	s, err := openSession()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported := 0
	for name, rows := range byModel {
		c, err := s.collection(name)
		if err != nil {
			exitErr("import", err)
		}
		for _, row := range rows {
			delete(row, schema.IDField)
			delete(row, schema.ModelField)
			if _, err := c.Create(cmd.Context(), row); err != nil {
				exitErr("import", fmt.Errorf("%s: %w", name, err))
			}
			imported++
		}
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/firerecord/internal/schema"
)

func init() {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List declared models",
		Long:  "List the models declared in the config file, or the built-in stock and transaction models when none are declared.",
		Run:   runModels,
	}

	RootCmd.AddCommand(cmd)
}

type modelInfo struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	HasMany   []string `json:"has_many,omitempty"`
	BelongsTo []string `json:"belongs_to,omitempty"`
}

func describeModel(m *schema.Model) modelInfo {
	return modelInfo{
		Name:      m.Name(),
		Path:      m.StoragePath(),
		HasMany:   m.HasManyFields(),
		BelongsTo: m.BelongsToFields(),
	}
}

func runModels(cmd *cobra.Command, args []string) {
	s, err := openSession()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var infos []modelInfo
	for _, m := range s.registry.Models() {
		infos = append(infos, describeModel(m))
	}

	if formatFlag == "text" {
		for _, i := range infos {
			fmt.Printf("%s\t%s\thas_many=%s\tbelongs_to=%s\n",
				i.Name, i.Path, strings.Join(i.HasMany, ","), strings.Join(i.BelongsTo, ","))
		}
		return
	}
	printJSON(infos)
}

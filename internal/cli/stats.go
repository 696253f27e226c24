package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/firerecord/internal/metrics"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record counts per model",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type stats struct {
	Driver        string             `json:"driver"`
	Records       map[string]int     `json:"records"`
	StoreRequests map[string]float64 `json:"store_requests"`
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openSession()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st := stats{Driver: s.cfg.Driver, Records: make(map[string]int)}
	for _, m := range s.registry.Models() {
		c, err := s.collection(m.Name())
		if err != nil {
			exitErr("stats", err)
		}
		recs, err := c.All(cmd.Context())
		if err != nil {
			exitErr("stats", err)
		}
		st.Records[m.Name()] = len(recs)
	}

	st.StoreRequests, err = metrics.RequestCounts(s.gatherer)
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(st)
}

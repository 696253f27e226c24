// Package cli implements the firerecord CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcliao/firerecord/internal/config"
	"github.com/rcliao/firerecord/internal/mapper"
	"github.com/rcliao/firerecord/internal/metrics"
	"github.com/rcliao/firerecord/internal/model"
	"github.com/rcliao/firerecord/internal/portfolio"
	"github.com/rcliao/firerecord/internal/schema"
	"github.com/rcliao/firerecord/internal/store"
)

var (
	configPath string
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "firerecord",
	Short: "Records over a hierarchical JSON store",
	Long:  "Create, find and relate records stored in a Firebase-style JSON tree, hosted or in a local SQLite file.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("FIRERECORD_CONFIG"), "Config file (default: $FIRERECORD_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Use a local store file at this path (SQLite unless the bolt driver is configured)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// session is one command's view of the configured store.
type session struct {
	cfg      *config.Config
	client   store.Client
	registry *schema.Registry
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
	close    func() error
}

func openSession() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		if cfg.Driver != config.DriverBolt {
			cfg.Driver = config.DriverSQLite
		}
		cfg.SQLite.Path = dbPath
		cfg.Bolt.Path = dbPath
	}
	logger := cfg.Logger(os.Stderr)

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	if len(reg.Models()) == 0 {
		for _, m := range portfolio.Models() {
			if err := reg.Register(m); err != nil {
				return nil, err
			}
		}
	}

	promReg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(promReg)
	s := &session{cfg: cfg, registry: reg, gatherer: promReg, logger: logger, close: func() error { return nil }}

	switch cfg.Driver {
	case config.DriverSQLite:
		sq, err := store.NewSQLiteStore(cfg.SQLite.Path,
			store.WithSQLiteLogger(logger),
			store.WithSQLiteMetrics(collector))
		if err != nil {
			return nil, err
		}
		s.client = sq
		s.close = sq.Close
	case config.DriverBolt:
		bs, err := store.NewBoltStore(cfg.Bolt.Path,
			store.WithBoltLogger(logger),
			store.WithBoltMetrics(collector))
		if err != nil {
			return nil, err
		}
		s.client = bs
		s.close = bs.Close
	default:
		addr, err := cfg.StoreAddress()
		if err != nil {
			return nil, err
		}
		hc, err := store.NewHTTPClient(addr,
			store.WithAuth(cfg.Firebase.Auth),
			store.WithTimeout(cfg.Firebase.Timeout),
			store.WithLogger(logger),
			store.WithMetrics(collector))
		if err != nil {
			return nil, err
		}
		s.client = hc
	}
	logger.Debug().Str("driver", cfg.Driver).Int("models", len(reg.Models())).Msg("session opened")
	return s, nil
}

func (s *session) Close() error { return s.close() }

func (s *session) collection(name string) (*mapper.Collection, error) {
	m, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q", name)
	}
	return mapper.New(s.client, m, mapper.WithLogger(s.logger)), nil
}

// mustCollection opens a session and binds model name, exiting on failure.
func mustCollection(name string) (*session, *mapper.Collection) {
	s, err := openSession()
	if err != nil {
		exitErr("open store", err)
	}
	c, err := s.collection(name)
	if err != nil {
		s.Close()
		exitErr("model", err)
	}
	return s, c
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func printRecords(recs []*model.Record) {
	if formatFlag != "text" {
		if recs == nil {
			recs = []*model.Record{}
		}
		printJSON(recs)
		return
	}
	for _, r := range recs {
		fmt.Println(recordLine(r))
	}
}

func printRecord(r *model.Record) {
	if formatFlag != "text" {
		printJSON(r)
		return
	}
	fmt.Println(recordLine(r))
}

// recordLine renders "<id> k=v ..." with JSON-encoded values.
func recordLine(r *model.Record) string {
	parts := []string{r.ID()}
	for _, k := range r.Keys() {
		if k == schema.IDField || k == schema.ModelField {
			continue
		}
		v, _ := r.Get(k)
		b, _ := json.Marshal(v)
		parts = append(parts, k+"="+string(b))
	}
	return strings.Join(parts, " ")
}

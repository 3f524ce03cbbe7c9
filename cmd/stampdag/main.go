package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/systemshift/stampdag/internal/codec"
	"github.com/systemshift/stampdag/internal/config"
	"github.com/systemshift/stampdag/internal/oracle"
	"github.com/systemshift/stampdag/internal/proof"
	"github.com/systemshift/stampdag/internal/store"
)

// app carries what every subcommand needs once flags and config are parsed.
type app struct {
	v        *viper.Viper
	cfgPath  string
	cfg      *config.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *oracle.Metrics
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("stampdag: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "stampdag",
		Short:         "Inspect, verify and optimize timestamp proofs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "config file (default $HOME/.config/stampdag/config.yaml)")
	flags.String("data-dir", "", "directory holding the .stampdag store")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	a.v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(
		newInfoCmd(a),
		newVerifyCmd(a),
		newPruneCmd(a),
		newStoreCmd(a),
		newMountCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
	a.registry = prometheus.NewRegistry()
	a.metrics = oracle.NewMetrics(a.registry)
	return nil
}

func (a *app) openRepo() (*store.Repository, error) {
	repo, err := store.Open(a.cfg.DataDir, a.log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return repo, nil
}

func readProof(path string) (*proof.DetachedTimestamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dt, err := codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dt, nil
}

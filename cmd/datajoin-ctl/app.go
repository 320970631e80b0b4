package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-datajoin/internal/config"
	"github.com/withObsrvr/obsrvr-datajoin/internal/kvstore"
	"github.com/withObsrvr/obsrvr-datajoin/internal/logging"
	"github.com/withObsrvr/obsrvr-datajoin/internal/metrics"
)

// app carries what every subcommand shares. The store is opened on first
// use so commands that never touch it work without a backend.
type app struct {
	cfg     config.Config
	out     io.Writer
	promReg *prometheus.Registry
	metrics *metrics.Metrics
	store   kvstore.Store
	log     *slog.Logger
}

func newApp(cfg config.Config, out io.Writer) *app {
	reg := prometheus.NewRegistry()
	return &app{
		cfg:     cfg,
		out:     out,
		promReg: reg,
		metrics: metrics.New("datajoin", reg),
		log:     logging.Component("datajoin-ctl"),
	}
}

func (a *app) openStore(ctx context.Context) (kvstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := kvstore.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Backend, err)
	}
	a.store = store
	return store, nil
}

func (a *app) openCASStore(ctx context.Context) (kvstore.CASStore, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	cas := kvstore.AsCAS(store)
	if cas == nil {
		return nil, fmt.Errorf("%w: %s", kvstore.ErrCASUnsupported, a.cfg.Store.Backend)
	}
	return cas, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "datajoin-ctl",
		Short:        "Inspect and drive data-join coordination state",
		Version:      fmt.Sprintf("%s (%s)", Version, GitSHA),
		SilenceUsage: true,
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.cfg.DataSource, "data-source", a.cfg.DataSource,
		"data source name (defaults to DATA_SOURCE)")

	root.AddCommand(
		newBlockIDCmd(a),
		newKeyCmd(a),
		newDataSourceCmd(a),
		newPublishCmd(a),
		newFinishCmd(a),
		newEntriesCmd(a),
		newAnchorCmd(a),
		newMemcheckCmd(a),
	)
	return root
}

func parsePartition(s string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid < 0 {
		return 0, fmt.Errorf("invalid partition id %q", s)
	}
	return pid, nil
}

func parseInt64(name, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// parseIndex parses a non-negative counter such as a process index or job id.
func parseIndex(name, s string) (int64, error) {
	v, err := parseInt64(name, s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, s)
	}
	return v, nil
}

func (a *app) requireDataSource() (string, error) {
	if a.cfg.DataSource == "" {
		return "", fmt.Errorf("data source name required (--data-source or DATA_SOURCE)")
	}
	return a.cfg.DataSource, nil
}

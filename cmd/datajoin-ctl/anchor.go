package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/withObsrvr/obsrvr-datajoin/internal/anchor"
)

func (a *app) newAnchorManager(cmd *cobra.Command) (anchor.Manager, error) {
	name, err := a.requireDataSource()
	if err != nil {
		return nil, err
	}
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	return anchor.NewManager(anchor.Config{
		Enabled:    a.cfg.Anchor.Enabled,
		DataSource: name,
		Store:      store,
		Metrics:    a.metrics,
	})
}

func newAnchorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anchor",
		Short: "Read and write dumped example id anchors",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <partition>",
		Short: "Print a partition's anchor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePartition(args[0])
			if err != nil {
				return err
			}
			mgr, err := a.newAnchorManager(cmd)
			if err != nil {
				return err
			}
			anc, err := mgr.Load(cmd.Context(), pid)
			if errors.Is(err, anchor.ErrNoAnchor) {
				return fmt.Errorf("partition %d: %w", pid, err)
			}
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(a.out)
			defer enc.Close()
			return enc.Encode(anc)
		},
	})

	var (
		index     int64
		eventTime int64
	)
	set := &cobra.Command{
		Use:   "set <partition> <example_id>",
		Short: "Record the last dumped example id of a partition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePartition(args[0])
			if err != nil {
				return err
			}
			mgr, err := a.newAnchorManager(cmd)
			if err != nil {
				return err
			}
			return mgr.Save(cmd.Context(), &anchor.Anchor{
				PartitionID: pid,
				ExampleID:   args[1],
				EventTime:   eventTime,
				Index:       index,
			})
		},
	}
	set.Flags().Int64Var(&index, "index", 0, "example index within the partition")
	set.Flags().Int64Var(&eventTime, "event-time", 0, "event time of the example")
	cmd.AddCommand(set)

	return cmd
}

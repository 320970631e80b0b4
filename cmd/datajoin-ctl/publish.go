package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-datajoin/internal/logging"
	"github.com/withObsrvr/obsrvr-datajoin/internal/publisher"
)

func (a *app) newPublisher(cmd *cobra.Command, pubDir string) (*publisher.Publisher, error) {
	if pubDir == "" {
		pubDir = a.cfg.Publisher.PubDir
	}
	if pubDir == "" {
		return nil, fmt.Errorf("publication directory required (--pub-dir or RAW_DATA_PUB_DIR)")
	}
	store, err := a.openCASStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	return publisher.New(publisher.Config{
		Store:   store,
		PubDir:  pubDir,
		Metrics: a.metrics,
	})
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		pubDir     string
		timestamps []string
	)

	cmd := &cobra.Command{
		Use:   "publish <partition> <file>...",
		Short: "Append raw data files to a partition's publication list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePartition(args[0])
			if err != nil {
				return err
			}

			var ts []time.Time
			for _, s := range timestamps {
				t, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return fmt.Errorf("invalid timestamp %q: %w", s, err)
				}
				ts = append(ts, t)
			}

			pub, err := a.newPublisher(cmd, pubDir)
			if err != nil {
				return err
			}
			files := args[1:]
			if err := pub.Publish(cmd.Context(), pid, files, ts); err != nil {
				return err
			}

			logging.PartitionLogger(cmd.Context(), a.cfg.DataSource, pid).
				Info("published raw data", "files", len(files))
			return nil
		},
	}
	cmd.Flags().StringVar(&pubDir, "pub-dir", "", "publication directory (defaults to RAW_DATA_PUB_DIR)")
	cmd.Flags().StringSliceVar(&timestamps, "timestamp", nil, "RFC3339 timestamp per file, in file order")
	return cmd
}

func newFinishCmd(a *app) *cobra.Command {
	var pubDir string

	cmd := &cobra.Command{
		Use:   "finish <partition>",
		Short: "Mark a partition's raw data as complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePartition(args[0])
			if err != nil {
				return err
			}
			pub, err := a.newPublisher(cmd, pubDir)
			if err != nil {
				return err
			}
			if err := pub.Finish(cmd.Context(), pid); err != nil {
				return err
			}
			logging.PartitionLogger(cmd.Context(), a.cfg.DataSource, pid).Info("raw data finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&pubDir, "pub-dir", "", "publication directory (defaults to RAW_DATA_PUB_DIR)")
	return cmd
}

func newEntriesCmd(a *app) *cobra.Command {
	var pubDir string

	cmd := &cobra.Command{
		Use:   "entries <partition>",
		Short: "List a partition's publication entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePartition(args[0])
			if err != nil {
				return err
			}
			pub, err := a.newPublisher(cmd, pubDir)
			if err != nil {
				return err
			}
			entries, err := pub.Entries(cmd.Context(), pid)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tFILE\tTIMESTAMP")
			for i, e := range entries {
				if e.Finished() || e.RawDataMeta == nil {
					fmt.Fprintf(w, "%d\t(finished)\t\n", i)
					continue
				}
				ts := ""
				if e.RawDataMeta.Timestamp != nil {
					ts = e.RawDataMeta.Timestamp.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", i, e.RawDataMeta.FilePath, ts)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&pubDir, "pub-dir", "", "publication directory (defaults to RAW_DATA_PUB_DIR)")
	return cmd
}

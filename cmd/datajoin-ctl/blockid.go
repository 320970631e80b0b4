package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/withObsrvr/obsrvr-datajoin/internal/blockid"
)

type decodedBlockID struct {
	DataSourceName string `yaml:"data_source_name"`
	PartitionID    int    `yaml:"partition_id"`
	DataBlockIndex int64  `yaml:"data_block_index"`
	StartTime      int64  `yaml:"start_time"`
	EndTime        int64  `yaml:"end_time"`
}

func newBlockIDCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blockid",
		Short: "Encode and decode data block identifiers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "encode <data_source> <partition> <index> <start_time> <end_time>",
		Short: "Build a block identifier",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePartition(args[1])
			if err != nil {
				return err
			}
			index, err := parseIndex("data block index", args[2])
			if err != nil {
				return err
			}
			start, err := parseInt64("start time", args[3])
			if err != nil {
				return err
			}
			end, err := parseInt64("end time", args[4])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, blockid.Encode(args[0], pid, index, start, end))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decode <block_id>",
		Short: "Split a block identifier into its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := blockid.Decode(args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(a.out)
			defer enc.Close()
			return enc.Encode(decodedBlockID{
				DataSourceName: id.DataSourceName,
				PartitionID:    id.PartitionID,
				DataBlockIndex: id.DataBlockIndex,
				StartTime:      id.TimeFrame.Start,
				EndTime:        id.TimeFrame.End,
			})
		},
	})

	return cmd
}

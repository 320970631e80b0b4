package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-datajoin/internal/registry"
)

func newDataSourceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasource",
		Short: "Read and write data source descriptors",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [name]",
		Short: "Print a data source descriptor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.cfg.DataSource
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" {
				return registry.ErrEmptyName
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			ds, err := registry.New(store, a.metrics).Retrieve(cmd.Context(), name)
			if err != nil {
				return err
			}
			text, err := ds.CanonicalText()
			if err != nil {
				return err
			}
			_, err = a.out.Write(text)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "put <descriptor.yaml>",
		Short: "Commit a data source descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read descriptor: %w", err)
			}
			ds, err := registry.ParseText(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := registry.New(store, a.metrics).Commit(cmd.Context(), ds); err != nil {
				return err
			}
			a.log.Info("committed data source", "data_source", ds.Meta.Name)
			return nil
		},
	})

	return cmd
}

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-datajoin/internal/keyspace"
)

type keyKind struct {
	usage  string
	nargs  int
	derive func(args []string) (string, error)
}

var keyKinds = map[string]keyKind{
	"data-source": {"<name>", 1, func(args []string) (string, error) {
		return keyspace.DataSourceBase(args[0]), nil
	}},
	"manifest": {"<name> <partition>", 2, func(args []string) (string, error) {
		pid, err := parsePartition(args[1])
		if err != nil {
			return "", err
		}
		return keyspace.PartitionManifestKey(args[0], pid), nil
	}},
	"raw-data-meta": {"<name> <partition> <process_index>", 3, func(args []string) (string, error) {
		pid, err := parsePartition(args[1])
		if err != nil {
			return "", err
		}
		idx, err := parseIndex("process index", args[2])
		if err != nil {
			return "", err
		}
		return keyspace.RawDataMetaKey(args[0], pid, idx), nil
	}},
	"anchor": {"<name> <partition>", 2, func(args []string) (string, error) {
		pid, err := parsePartition(args[1])
		if err != nil {
			return "", err
		}
		return keyspace.ExampleIDAnchorKey(args[0], pid), nil
	}},
	"pub": {"<pub_dir> <partition> <process_index>", 3, func(args []string) (string, error) {
		pid, err := parsePartition(args[1])
		if err != nil {
			return "", err
		}
		idx, err := parseIndex("process index", args[2])
		if err != nil {
			return "", err
		}
		return keyspace.RawDataPubKey(args[0], pid, idx), nil
	}},
	"pub-dir": {"<pub_dir> <partition>", 2, func(args []string) (string, error) {
		pid, err := parsePartition(args[1])
		if err != nil {
			return "", err
		}
		return keyspace.RawDataPubDir(args[0], pid), nil
	}},
	"portal": {"<portal>", 1, func(args []string) (string, error) {
		return keyspace.PortalBase(args[0]), nil
	}},
	"portal-job": {"<portal> <job_id>", 2, func(args []string) (string, error) {
		job, err := parseIndex("job id", args[1])
		if err != nil {
			return "", err
		}
		return keyspace.PortalJobKey(args[0], job), nil
	}},
	"portal-job-part": {"<portal> <job_id> <partition>", 3, func(args []string) (string, error) {
		job, err := parseIndex("job id", args[1])
		if err != nil {
			return "", err
		}
		pid, err := parsePartition(args[2])
		if err != nil {
			return "", err
		}
		return keyspace.PortalJobPartKey(args[0], job, pid), nil
	}},
}

func keyKindNames() []string {
	names := make([]string, 0, len(keyKinds))
	for name := range keyKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newKeyCmd(a *app) *cobra.Command {
	var long strings.Builder
	long.WriteString("Derive a coordination store key.\n\nKinds:\n")
	for _, name := range keyKindNames() {
		fmt.Fprintf(&long, "  %-16s %s\n", name, keyKinds[name].usage)
	}

	return &cobra.Command{
		Use:       "key <kind> [args...]",
		Short:     "Derive a coordination store key",
		Long:      long.String(),
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: keyKindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := keyKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown key kind %q (want one of %s)", args[0], strings.Join(keyKindNames(), ", "))
			}
			if len(args)-1 != kind.nargs {
				return fmt.Errorf("key %s takes %s", args[0], kind.usage)
			}
			key, err := kind.derive(args[1:])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, key)
			return err
		},
	}
}

// Package keyspace derives the paths under which data-join workers keep
// shared progress state in the coordination store.
//
// Keys are never stored or cached. Every participant recomputes them from
// the same inputs, so a restarted worker finds its own prior progress
// without asking anyone.
//
// Segments are joined with "/" verbatim. Nothing is cleaned, so distinct
// inputs never collapse onto the same key.
package keyspace

import (
	"fmt"
	"strings"

	"github.com/withObsrvr/obsrvr-datajoin/internal/blockid"
)

const (
	dataSourceDir      = "data_source"
	rawDataDir         = "raw_data_dir"
	exampleIDAnchorDir = "dumped_example_id_anchor"
	portalDir          = "portal"
	portalJobDir       = "job_dir"
	portalJobSuffix    = ".pj"
)

// DataSourceBase is the root key of a data source. The data source
// descriptor itself is stored here.
func DataSourceBase(name string) string {
	return join(dataSourceDir, name)
}

// PartitionManifestKey is the directory of raw data progress entries for
// one partition.
func PartitionManifestKey(name string, partitionID int) string {
	return join(DataSourceBase(name), rawDataDir, blockid.PartitionRepr(partitionID))
}

// RawDataMetaKey is one worker's raw data progress entry.
func RawDataMetaKey(name string, partitionID int, processIndex int64) string {
	return join(PartitionManifestKey(name, partitionID),
		fmt.Sprintf("%s%08d", blockid.RawDataMetaPrefix, processIndex))
}

// ExampleIDAnchorKey holds the last dumped example id of a partition.
func ExampleIDAnchorKey(name string, partitionID int) string {
	return join(DataSourceBase(name), exampleIDAnchorDir, blockid.PartitionRepr(partitionID))
}

// RawDataPubKey is the processIndex-th raw data publication of a partition.
func RawDataPubKey(pubBaseDir string, partitionID int, processIndex int64) string {
	return join(RawDataPubDir(pubBaseDir, partitionID),
		fmt.Sprintf("%08d%s", processIndex, blockid.RawDataPubSuffix))
}

// RawDataPubDir is the parent of all publications of a partition.
func RawDataPubDir(pubBaseDir string, partitionID int) string {
	return join(pubBaseDir, blockid.PartitionRepr(partitionID))
}

// PortalBase is the root key of a portal.
func PortalBase(portalName string) string {
	return join(portalDir, portalName)
}

// PortalJobKey is the entry of one portal job.
func PortalJobKey(portalName string, jobID int64) string {
	return join(PortalBase(portalName), portalJobDir, fmt.Sprintf("%08d%s", jobID, portalJobSuffix))
}

// PortalJobPartKey is the per-partition entry of a portal job.
func PortalJobPartKey(portalName string, jobID int64, partitionID int) string {
	return join(PortalJobKey(portalName, jobID), blockid.PartitionRepr(partitionID))
}

func join(segments ...string) string {
	return strings.Join(segments, "/")
}

package blockid

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Suffix is one of the fixed filename suffixes recognized by the pipeline.
type Suffix string

const (
	DataBlockSuffix     Suffix = ".data"
	DataBlockMetaSuffix Suffix = ".meta"
	TmpFileSuffix       Suffix = ".tmp"
	DoneFileSuffix      Suffix = ".done"
	RawDataFileSuffix   Suffix = ".rd"
	RawDataPubSuffix    Suffix = ".pub"
)

var suffixes = []Suffix{
	DataBlockSuffix,
	DataBlockMetaSuffix,
	TmpFileSuffix,
	DoneFileSuffix,
	RawDataFileSuffix,
	RawDataPubSuffix,
}

// Suffixes returns the recognized suffix set.
func Suffixes() []Suffix {
	out := make([]Suffix, len(suffixes))
	copy(out, suffixes)
	return out
}

// HasKnownSuffix reports which recognized suffix, if any, ends name.
func HasKnownSuffix(name string) (Suffix, bool) {
	for _, s := range suffixes {
		if strings.HasSuffix(name, string(s)) {
			return s, true
		}
	}
	return "", false
}

// MetaFilename returns the filename of a block's meta record. It does not
// include the time frame, which is unknown until the block is finalized.
func MetaFilename(name string, partitionID int, index int64) string {
	return fmt.Sprintf("%s.%s.%08d%s", name, PartitionRepr(partitionID), index, DataBlockMetaSuffix)
}

// DataFilename returns the filename of a finalized data block.
func DataFilename(name string, meta DataBlockMeta) string {
	return EncodeMeta(name, meta) + string(DataBlockSuffix)
}

// TmpFilePath returns a fresh temporary file path under dir.
func TmpFilePath(dir string) string {
	id, err := uuid.NewUUID()
	if err != nil {
		id = uuid.New()
	}
	return path.Join(dir, id.String()+string(TmpFileSuffix))
}

// DataBlockDir is where a data source publishes its data blocks.
func DataBlockDir(outputBaseDir string) string {
	return path.Join(outputBaseDir, "data_block")
}

// ExampleDumpedDir is where a data source dumps example ids.
func ExampleDumpedDir(outputBaseDir string) string {
	return path.Join(outputBaseDir, "example_dump")
}

// PortalMapOutputDir is the output directory of a portal job's map phase.
func PortalMapOutputDir(mapBaseDir string, jobID int64) string {
	return path.Join(mapBaseDir, fmt.Sprintf("map_%08d", jobID))
}

// PortalReduceOutputDir is the output directory of a portal job's reduce phase.
func PortalReduceOutputDir(reduceBaseDir string, jobID int64) string {
	return path.Join(reduceBaseDir, fmt.Sprintf("reduce_%08d", jobID))
}

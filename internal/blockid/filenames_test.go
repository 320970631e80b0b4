package blockid

import (
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetaFilename(t *testing.T) {
	assert.Equal(t, "ds1.partition_0002.00000010.meta", MetaFilename("ds1", 2, 10))
}

func TestDataFilename(t *testing.T) {
	meta := DataBlockMeta{PartitionID: 2, DataBlockIndex: 10, StartTime: 5, EndTime: 9}
	assert.Equal(t, "ds1.partition_0002.00000010.5-9.data", DataFilename("ds1", meta))
}

func TestSuffixes(t *testing.T) {
	assert.Equal(t, []Suffix{".data", ".meta", ".tmp", ".done", ".rd", ".pub"}, Suffixes())

	s, ok := HasKnownSuffix("ds1.partition_0002.00000010.meta")
	assert.True(t, ok)
	assert.Equal(t, DataBlockMetaSuffix, s)

	s, ok = HasKnownSuffix("00000003.pub")
	assert.True(t, ok)
	assert.Equal(t, RawDataPubSuffix, s)

	_, ok = HasKnownSuffix("part-1000-1009.parquet")
	assert.False(t, ok)
}

func TestSuffixesReturnsCopy(t *testing.T) {
	got := Suffixes()
	got[0] = ".oops"
	assert.Equal(t, DataBlockSuffix, Suffixes()[0])
}

func TestTmpFilePath(t *testing.T) {
	a := TmpFilePath("/tmp/work")
	b := TmpFilePath("/tmp/work")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "/tmp/work", path.Dir(a))
	assert.True(t, strings.HasSuffix(a, ".tmp"))
}

func TestOutputDirs(t *testing.T) {
	assert.Equal(t, "/out/data_block", DataBlockDir("/out"))
	assert.Equal(t, "/out/example_dump", ExampleDumpedDir("/out"))
	assert.Equal(t, "/map/map_00000012", PortalMapOutputDir("/map", 12))
	assert.Equal(t, "/reduce/reduce_00000012", PortalReduceOutputDir("/reduce", 12))
}

// Package blockid names and parses the immutable data blocks produced by
// data-join workers.
//
// A block id has the form
//
//	{data_source}.partition_{NNNN}.{NNNNNNNN}.{start}-{end}
//
// where the partition id is zero-padded to at least 4 digits and the block
// index to at least 8. Workers never exchange block ids directly; every
// consumer recomputes or parses them, so the format is fixed.
package blockid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// PartitionPrefix precedes the zero-padded partition id.
	PartitionPrefix = "partition_"

	// RawDataMetaPrefix precedes the per-worker process index in raw data
	// manifest entries.
	RawDataMetaPrefix = "raw_data_"

	segmentSep   = "."
	timeFrameSep = '-'
	numSegments  = 4
)

// InvalidEventTime marks an example without a usable event time.
const InvalidEventTime int64 = math.MinInt64

// TimeFrame is the event-time range covered by a data block.
type TimeFrame struct {
	Start int64
	End   int64
}

// String renders the frame the way it appears inside a block id.
func (t TimeFrame) String() string {
	return fmt.Sprintf("%d-%d", t.Start, t.End)
}

// DataBlockMeta carries the fields of a finalized block that take part in
// its identity.
type DataBlockMeta struct {
	PartitionID    int
	DataBlockIndex int64
	StartTime      int64
	EndTime        int64
}

// BlockID is a decoded block identifier.
type BlockID struct {
	DataSourceName string
	PartitionID    int
	DataBlockIndex int64
	TimeFrame      TimeFrame
}

// String re-encodes the block id.
func (b BlockID) String() string {
	return Encode(b.DataSourceName, b.PartitionID, b.DataBlockIndex, b.TimeFrame.Start, b.TimeFrame.End)
}

// PartitionRepr renders a partition id as partition_NNNN. Ids wider than
// four digits are rendered in full.
func PartitionRepr(partitionID int) string {
	return fmt.Sprintf("%s%04d", PartitionPrefix, partitionID)
}

// Encode builds the canonical block id.
func Encode(name string, partitionID int, index int64, start, end int64) string {
	return fmt.Sprintf("%s.%s.%08d.%d-%d", name, PartitionRepr(partitionID), index, start, end)
}

// EncodeMeta builds the block id for a finalized block's meta.
func EncodeMeta(name string, meta DataBlockMeta) string {
	return Encode(name, meta.PartitionID, meta.DataBlockIndex, meta.StartTime, meta.EndTime)
}

// Decode parses a block id produced by Encode.
func Decode(blockID string) (BlockID, error) {
	segs := strings.Split(blockID, segmentSep)
	if len(segs) != numSegments {
		return BlockID{}, invalid(blockID, "segments",
			fmt.Sprintf("expected %d segments split by %q, got %d", numSegments, segmentSep, len(segs)))
	}

	name := segs[0]
	if name == "" {
		return BlockID{}, invalid(blockID, "data_source_name", "empty")
	}

	partSeg := segs[1]
	if !strings.HasPrefix(partSeg, PartitionPrefix) {
		return BlockID{}, invalid(blockID, "partition_id",
			fmt.Sprintf("segment %q lacks %q prefix", partSeg, PartitionPrefix))
	}
	partitionID, err := parseUnsigned(strings.TrimPrefix(partSeg, PartitionPrefix), strconv.IntSize)
	if err != nil {
		return BlockID{}, invalid(blockID, "partition_id", err.Error())
	}

	index, err := parseUnsigned(segs[2], 64)
	if err != nil {
		return BlockID{}, invalid(blockID, "data_block_index", err.Error())
	}

	startStr, endStr, n := splitTimeFrame(segs[3])
	if n != 2 {
		return BlockID{}, invalid(blockID, "time_frame",
			fmt.Sprintf("expected 2 segments split by %q, got %d", string(timeFrameSep), n))
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return BlockID{}, invalid(blockID, "start_time", fmt.Sprintf("%q is not an integer", startStr))
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return BlockID{}, invalid(blockID, "end_time", fmt.Sprintf("%q is not an integer", endStr))
	}

	return BlockID{
		DataSourceName: name,
		PartitionID:    int(partitionID),
		DataBlockIndex: index,
		TimeFrame:      TimeFrame{Start: start, End: end},
	}, nil
}

// parseUnsigned accepts decimal digits only; no sign, no blanks.
func parseUnsigned(s string, bits int) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%q is not a non-negative integer", s)
		}
	}
	v, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%q out of range", s)
	}
	return v, nil
}

// splitTimeFrame splits "start-end" on separator hyphens. A hyphen that
// opens a number (first byte, or following another hyphen) is a minus sign.
// It returns the number of segments found.
func splitTimeFrame(s string) (string, string, int) {
	cut := -1
	n := 1
	for i := 1; i < len(s); i++ {
		if s[i] == timeFrameSep && s[i-1] != timeFrameSep {
			if cut < 0 {
				cut = i
			}
			n++
		}
	}
	if cut < 0 {
		return s, "", n
	}
	return s[:cut], s[cut+1:], n
}

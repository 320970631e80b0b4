package publisher

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// RawDataMeta points a consumer at one published raw data file.
type RawDataMeta struct {
	FilePath   string     `yaml:"file_path"`
	StartIndex int64      `yaml:"start_index"`
	Timestamp  *time.Time `yaml:"timestamp,omitempty"`
}

// RawDataPub is one publication slot: either a file or the finished marker.
type RawDataPub struct {
	RawDataMeta     *RawDataMeta `yaml:"raw_data_meta,omitempty"`
	RawDataFinished bool         `yaml:"raw_data_finished,omitempty"`
}

// Finished reports whether this entry closes the partition.
func (p RawDataPub) Finished() bool {
	return p.RawDataFinished
}

func encodePub(p RawDataPub) ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode raw data pub: %w", err)
	}
	return data, nil
}

func decodePub(data []byte) (RawDataPub, error) {
	var p RawDataPub
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return RawDataPub{}, fmt.Errorf("decode raw data pub: %w", err)
	}
	return p, nil
}

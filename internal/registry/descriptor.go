package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Role is a data source's side of the join.
type Role string

const (
	RoleLeader   Role = "Leader"
	RoleFollower Role = "Follower"
)

// State is the lifecycle state of a data source.
type State string

const (
	StateInit       State = "Init"
	StateProcessing State = "Processing"
	StateReady      State = "Ready"
	StateFinished   State = "Finished"
	StateFailed     State = "Failed"
)

// DataSourceMeta is the part of a descriptor shared by both parties.
type DataSourceMeta struct {
	Name                 string  `yaml:"name"`
	PartitionNum         int     `yaml:"partition_num"`
	StartTime            int64   `yaml:"start_time,omitempty"`
	EndTime              int64   `yaml:"end_time,omitempty"`
	MinMatchingWindow    int64   `yaml:"min_matching_window,omitempty"`
	MaxMatchingWindow    int64   `yaml:"max_matching_window,omitempty"`
	DataSourceType       string  `yaml:"data_source_type,omitempty"`
	NegativeSamplingRate float64 `yaml:"negative_sampling_rate,omitempty"`
}

// DataSource describes one join session.
type DataSource struct {
	Meta          DataSourceMeta `yaml:"data_source_meta"`
	Role          Role           `yaml:"role,omitempty"`
	State         State          `yaml:"state,omitempty"`
	OutputBaseDir string         `yaml:"output_base_dir,omitempty"`
	RawDataSubDir string         `yaml:"raw_data_sub_dir,omitempty"`
}

// CanonicalText renders the text form stored in the registry. Field order
// is fixed by the struct, so equal descriptors render identically.
func (d *DataSource) CanonicalText() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode data source: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode data source: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseText decodes the canonical text form. Unknown fields and unknown
// enum values are rejected. Empty input yields a zero descriptor.
func ParseText(data []byte) (*DataSource, error) {
	var d DataSource

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	switch d.Role {
	case "", RoleLeader, RoleFollower:
	default:
		return nil, fmt.Errorf("unknown role %q", d.Role)
	}
	switch d.State {
	case "", StateInit, StateProcessing, StateReady, StateFinished, StateFailed:
	default:
		return nil, fmt.Errorf("unknown state %q", d.State)
	}

	return &d, nil
}

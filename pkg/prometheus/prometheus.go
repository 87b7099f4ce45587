// Copyright 2022 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package prometheus contains Prometheus-compliant metric data structures and utilities.
// It can export data in Prometheus data format, documented at:
// https://prometheus.io/docs/instrumenting/exposition_formats/
package prometheus

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// timeNow is the time.Now() function. Can be mocked in tests.
var timeNow = time.Now

// Type is a Prometheus metric type.
type Type int

// List of supported Prometheus metric types.
const (
	TypeUntyped = Type(iota)
	TypeGauge
	TypeCounter
)

func (t Type) String() string {
	switch t {
	case TypeGauge:
		return "gauge"
	case TypeCounter:
		return "counter"
	default:
		return "untyped"
	}
}

// Metric is a Prometheus metric metadata.
type Metric struct {
	// Name is the Prometheus metric name.
	Name string `json:"name"`

	// Type is the type of the metric.
	Type Type `json:"type"`

	// Help is an optional helpful string explaining what the metric is about.
	Help string `json:"help"`
}

// writeHeaderTo writes the metric comment header to the given writer.
func (m *Metric) writeHeaderTo(w io.Writer, prefix string) error {
	if m.Help != "" {
		// Prometheus metric description escape rules: Only backslashes and line breaks need escaping.
		help := strings.ReplaceAll(strings.ReplaceAll(m.Help, "\\", "\\\\"), "\n", "\\n")
		if _, err := fmt.Fprintf(w, "# HELP %s%s %s\n", prefix, m.Name, help); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "# TYPE %s%s %s\n", prefix, m.Name, m.Type)
	return err
}

// Data is an observation of the value of a single metric at a certain point in time.
type Data struct {
	// Metric is the metric for which the value is being reported.
	Metric *Metric `json:"metric"`

	// Labels is a key-value pair representing the labels set on this metric.
	Labels map[string]string `json:"labels,omitempty"`

	// Value is the observed value. Only integer-valued metrics are exported.
	Value uint64 `json:"val"`
}

// LabeledIntData returns a new Data struct with the given metric, labels, and value.
func LabeledIntData(metric *Metric, labels map[string]string, val uint64) *Data {
	return &Data{Metric: metric, Labels: labels, Value: val}
}

// NewIntData returns a new Data struct with the given metric and value.
func NewIntData(metric *Metric, val uint64) *Data {
	return LabeledIntData(metric, nil, val)
}

// OrderedLabels returns the list of 'label_key="label_value"' in sorted
// order. Duplicate keys across maps are an error.
func OrderedLabels(labels ...map[string]string) ([]string, error) {
	seen := make(map[string]struct{})
	var ordered []string
	for _, labelMap := range labels {
		for k, v := range labelMap {
			if _, found := seen[k]; found {
				return nil, fmt.Errorf("duplicate label name %q", k)
			}
			seen[k] = struct{}{}
			ordered = append(ordered, fmt.Sprintf("%s=%q", k, v))
		}
	}
	sort.Strings(ordered)
	return ordered, nil
}

// writeTo writes a single metric line.
func (d *Data) writeTo(w io.Writer, when time.Time, options ExportOptions) error {
	labels, err := OrderedLabels(d.Labels, options.ExtraLabels)
	if err != nil {
		return err
	}
	var labelStr string
	if len(labels) > 0 {
		labelStr = "{" + strings.Join(labels, ",") + "}"
	}
	_, err = fmt.Fprintf(w, "%s%s%s %d %d\n", options.ExporterPrefix, d.Metric.Name, labelStr, d.Value, when.UnixMilli())
	return err
}

// Snapshot is a snapshot of the values of all the metrics at a certain point in time.
type Snapshot struct {
	// When is the timestamp at which the snapshot was taken.
	// Note that Prometheus ultimately encodes timestamps as millisecond-precision int64s from epoch.
	When time.Time `json:"when,omitempty"`

	// Data is the whole snapshot data.
	// Each Data must be a unique combination of (Metric, Labels) within a Snapshot.
	Data []*Data `json:"data,omitempty"`
}

// NewSnapshot returns a new Snapshot at the current time.
func NewSnapshot() *Snapshot {
	return &Snapshot{When: timeNow()}
}

// Add data point(s) to the snapshot.
// Returns itself for chainability.
func (s *Snapshot) Add(data ...*Data) *Snapshot {
	s.Data = append(s.Data, data...)
	return s
}

// ExportOptions contains options that control how metric data is exported in Prometheus format.
type ExportOptions struct {
	// CommentHeader is prepended as a comment before any metric data is exported.
	CommentHeader string

	// ExporterPrefix is prepended to all metric names.
	ExporterPrefix string

	// ExtraLabels is added as labels for all metric values.
	ExtraLabels map[string]string
}

// countingWriter implements io.Writer, and counts the number of bytes written to it.
type countingWriter struct {
	w       *bufio.Writer
	written int
}

// Write implements io.Writer.Write.
func (w *countingWriter) Write(b []byte) (int, error) {
	written, err := w.w.Write(b)
	w.written += written
	return written, err
}

// Written returns the number of bytes written to the underlying writer (minus buffered writes).
func (w *countingWriter) Written() int {
	return w.written - w.w.Buffered()
}

// Write writes the snapshot to the writer in the Prometheus text format.
// Data points of the same metric are grouped under a single header, and
// metrics are written in name order.
func Write(w io.Writer, options ExportOptions, s *Snapshot) (int, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	if options.CommentHeader != "" {
		for _, commentLine := range strings.Split(options.CommentHeader, "\n") {
			if _, err := fmt.Fprintf(cw, "# %s\n", commentLine); err != nil {
				return cw.Written(), err
			}
		}
	}

	byName := make(map[string][]*Data)
	var names []string
	for _, d := range s.Data {
		if _, ok := byName[d.Metric.Name]; !ok {
			names = append(names, d.Metric.Name)
		}
		byName[d.Metric.Name] = append(byName[d.Metric.Name], d)
	}
	sort.Strings(names)

	for _, name := range names {
		data := byName[name]
		if err := data[0].Metric.writeHeaderTo(cw, options.ExporterPrefix); err != nil {
			return cw.Written(), err
		}
		for _, d := range data {
			if err := d.writeTo(cw, s.When, options); err != nil {
				return cw.Written(), err
			}
		}
	}
	if err := cw.w.Flush(); err != nil {
		return cw.Written(), err
	}
	return cw.Written(), nil
}

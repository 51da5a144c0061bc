package model

// This file contains the CSV codec for measurements. One measurement is one
// row. The column set and order are part of the durable data contract, and
// every value written here must parse back to an identical measurement.

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"name", "model", "engine", "engine_version", "err", "haystack_len",
	"iters", "total", "median", "mad", "mean", "stddev", "min", "max",
}

// CSVWriter streams measurements as CSV rows. The header row is written
// before the first record and every record is flushed immediately, so
// long-running measurement sessions produce output as they go.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter returns a CSVWriter writing to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends one measurement row, preceded by the header row on first
// use.
func (w *CSVWriter) Write(m *Measurement) error {
	if !w.wroteHeader {
		if err := w.w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		w.wroteHeader = true
	}
	haystackLen := ""
	if m.Aggregate.Tputs != nil {
		haystackLen = strconv.FormatUint(m.Aggregate.Tputs.Len, 10)
	}
	record := []string{
		m.Name,
		m.Model,
		m.Engine,
		m.EngineVersion,
		m.Err,
		haystackLen,
		strconv.FormatUint(m.Iters, 10),
		FormatDuration(m.Total),
		FormatDuration(m.Aggregate.Times.Median),
		FormatDuration(m.Aggregate.Times.Mad),
		FormatDuration(m.Aggregate.Times.Mean),
		FormatDuration(m.Aggregate.Times.Stddev),
		FormatDuration(m.Aggregate.Times.Min),
		FormatDuration(m.Aggregate.Times.Max),
	}
	if err := w.w.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV record for '%s': %w", m.Name, err)
	}
	w.w.Flush()
	return w.w.Error()
}

// ReadCSV reads all measurements from CSV data produced by CSVWriter. The
// header row is required; columns may appear in any order but all of them
// must be present.
func ReadCSV(r io.Reader) ([]Measurement, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing CSV header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range csvHeader {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing CSV column '%s'", name)
		}
	}

	var ms []Measurement
	for row := 2; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row, err)
		}
		m, err := measurementFromRecord(cols, record)
		if err != nil {
			return nil, fmt.Errorf("invalid CSV row %d: %w", row, err)
		}
		ms = append(ms, m)
	}
	return ms, nil
}

func measurementFromRecord(cols map[string]int, record []string) (Measurement, error) {
	field := func(name string) string { return record[cols[name]] }

	m := Measurement{
		Name:          field("name"),
		Model:         field("model"),
		Engine:        field("engine"),
		EngineVersion: field("engine_version"),
		Err:           field("err"),
	}
	var haystackLen uint64
	if s := field("haystack_len"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Measurement{}, fmt.Errorf("failed to parse haystack_len '%s': %w", s, err)
		}
		haystackLen = n
	}
	iters, err := strconv.ParseUint(field("iters"), 10, 64)
	if err != nil {
		return Measurement{}, fmt.Errorf("failed to parse iters '%s': %w", field("iters"), err)
	}
	m.Iters = iters

	durs := make(map[string]time.Duration, 7)
	for _, name := range []string{"total", "median", "mad", "mean", "stddev", "min", "max"} {
		d, err := ParseDuration(field(name))
		if err != nil {
			return Measurement{}, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		durs[name] = d
	}
	m.Total = durs["total"]
	times := AggregateTimes{
		Median: durs["median"],
		Mad:    durs["mad"],
		Mean:   durs["mean"],
		Stddev: durs["stddev"],
		Min:    durs["min"],
		Max:    durs["max"],
	}
	m.Aggregate = NewAggregate(times, haystackLen)
	return m, nil
}

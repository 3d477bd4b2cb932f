package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadCSV parses a labeled table from CSV. The header names the index levels
// followed by the year columns; the boundary is the first header cell that
// parses as an integer year.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	split := len(header)
	var years []int
	for i, cell := range header {
		if y, err := strconv.Atoi(cell); err == nil {
			if split == len(header) {
				split = i
			}
			years = append(years, y)
		} else if split != len(header) {
			return nil, fmt.Errorf("csv header: level column %q after year columns", cell)
		}
	}
	if split == 0 {
		return nil, fmt.Errorf("csv header has no index levels")
	}

	t := New(header[:split], years)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("csv line %d: %d cells, expected %d", line, len(record), len(header))
		}
		values := make([]float64, len(years))
		for i := range years {
			v, err := strconv.ParseFloat(record[split+i], 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: %w", line, err)
			}
			values[i] = v
		}
		t.AddRow(record[:split], values)
	}
	return t, nil
}

// ReadCSVFile reads a labeled table from the file at path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV serializes the table with the same header layout ReadCSV parses.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := t.Levels()
	for _, y := range t.years {
		header = append(header, strconv.Itoa(y))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range t.keys {
		record := t.Key(i)
		for _, v := range t.values[i] {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package collector

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"cine-scraper/movie"
)

// Dataset accumulates accepted movies in discovery order. It is cleared at
// the start of every run.
type Dataset struct {
	mu      sync.RWMutex
	records []movie.Record
}

func NewDataset() *Dataset {
	return &Dataset{}
}

// Reset drops all records.
func (d *Dataset) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = nil
}

// Add appends r.
func (d *Dataset) Add(r movie.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, r)
}

func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Records returns a copy of the collected movies.
func (d *Dataset) Records() []movie.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]movie.Record, len(d.records))
	copy(out, d.records)
	return out
}

// WriteCSV encodes the dataset as comma separated UTF-8 with a header row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(movie.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range d.Records() {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("failed to write csv row %q: %w", r.Title, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the dataset to path, creating parent directories.
func (d *Dataset) SaveCSV(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	if err := d.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mchmarny/top1m/pkg/rank"
)

const (
	filePrefix = "composite_top1m"
	timeLayout = "20060102_150405"
	dirPerm    = 0o755
)

var fullHeader = []string{"rank", "domain", "composite_score", "appearances", "avg_score"}

// Files holds the paths of the files written by Save.
type Files struct {
	Full   string `json:"full" yaml:"full"`
	Simple string `json:"simple" yaml:"simple"`
}

// WriteFull writes the ranking with all of its columns and a header row.
func WriteFull(w io.Writer, entries []rank.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fullHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(fullHeader))
	for _, e := range entries {
		row[0] = strconv.Itoa(e.Rank)
		row[1] = e.Domain
		row[2] = formatFloat(e.CompositeScore)
		row[3] = strconv.Itoa(e.Appearances)
		row[4] = formatFloat(e.AvgScore)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Domain, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush full ranking: %w", err)
	}
	return nil
}

// WriteSimple writes rank,domain pairs without a header.
func WriteSimple(w io.Writer, entries []rank.Entry) error {
	cw := csv.NewWriter(w)
	row := make([]string, 2)
	for _, e := range entries {
		row[0] = strconv.Itoa(e.Rank)
		row[1] = e.Domain
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Domain, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush ranking: %w", err)
	}
	return nil
}

// FileNames returns the full and simple file names for a ranking built at.
func FileNames(at time.Time) (full, simple string) {
	ts := at.Format(timeLayout)
	return fmt.Sprintf("%s_full_%s.csv", filePrefix, ts), fmt.Sprintf("%s_%s.csv", filePrefix, ts)
}

// Save writes both forms of the ranking into dir, creating it if needed.
func Save(dir string, entries []rank.Entry, at time.Time) (*Files, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("error creating output dir %s: %w", dir, err)
	}

	fullName, simpleName := FileNames(at)
	files := &Files{
		Full:   filepath.Join(dir, fullName),
		Simple: filepath.Join(dir, simpleName),
	}

	if err := writeFile(files.Full, entries, WriteFull); err != nil {
		return nil, err
	}
	if err := writeFile(files.Simple, entries, WriteSimple); err != nil {
		return nil, err
	}

	return files, nil
}

func writeFile(path string, entries []rank.Entry, write func(io.Writer, []rank.Entry) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	if err := write(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

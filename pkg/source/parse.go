package source

import (
	"archive/zip"
	"cmp"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/mchmarny/top1m/pkg/rank"
)

const byteOrderMark = "\ufeff"

// ErrMissingColumn is returned when the rank or domain column can't be located.
var ErrMissingColumn = errors.New("missing column")

// ReadFile parses the list stored at path according to the source config.
// Records come back sorted ascending by rank with unusable rows last.
func ReadFile(path string, cfg *Config) ([]rank.Record, error) {
	if path == "" {
		return nil, errors.New("path not set")
	}
	if cfg == nil {
		return nil, errors.New("config required")
	}

	var list []rank.Record
	var err error

	switch cfg.Format {
	case FormatCSVZip:
		list, err = readZip(path, cfg)
	case FormatCSVGz:
		list, err = readGzip(path, cfg)
	case FormatCSV:
		list, err = readPlain(path, cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", rank.ErrConfiguration, cfg.Format)
	}
	if err != nil {
		return nil, err
	}

	sortByRank(list)
	return list, nil
}

func readPlain(path string, cfg *Config) ([]rank.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %s: %w", path, err)
	}
	defer f.Close()

	return parseRecords(f, cfg)
}

func readGzip(path string, cfg *Config) ([]rank.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("error opening gzip stream: %s: %w", path, err)
	}
	defer gz.Close()

	return parseRecords(gz, cfg)
}

// readZip parses the first file in the archive.
func readZip(path string, cfg *Config) ([]rank.Record, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("error opening zip archive: %s: %w", path, err)
	}
	defer z.Close()

	for _, zf := range z.File {
		if zf.FileInfo().IsDir() {
			continue
		}

		r, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening %s in %s: %w", zf.Name, path, err)
		}
		defer r.Close()

		return parseRecords(r, cfg)
	}

	return nil, fmt.Errorf("zip archive has no files: %s", path)
}

func parseRecords(r io.Reader, cfg *Config) ([]rank.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	rankIdx, domainIdx, err := columnIndexes(cr, cfg)
	if err != nil {
		return nil, err
	}

	list := make([]rank.Record, 0)
	for cfg.Limit <= 0 || len(list) < cfg.Limit {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				// keep the row so it gets counted as invalid
				list = append(list, rank.Record{})
				continue
			}
			return nil, fmt.Errorf("error reading %s records: %w", cfg.Name, err)
		}

		list = append(list, toRecord(row, rankIdx, domainIdx, cfg.StripScheme))
	}

	return list, nil
}

func columnIndexes(cr *csv.Reader, cfg *Config) (rankIdx, domainIdx int, err error) {
	if !cfg.Header {
		rankIdx = slices.Index(cfg.Columns, cfg.RankColumn)
		domainIdx = slices.Index(cfg.Columns, cfg.DomainColumn)
	} else {
		header, err := cr.Read()
		if err != nil {
			return -1, -1, fmt.Errorf("error reading %s header: %w", cfg.Name, err)
		}

		rankIdx, domainIdx = -1, -1
		for i, h := range header {
			h = strings.TrimSpace(strings.TrimPrefix(h, byteOrderMark))
			if rankIdx < 0 && strings.EqualFold(h, cfg.RankColumn) {
				rankIdx = i
			}
			if domainIdx < 0 && strings.EqualFold(h, cfg.DomainColumn) {
				domainIdx = i
			}
		}
	}

	if rankIdx < 0 {
		return -1, -1, fmt.Errorf("%w: %s has no %q column", ErrMissingColumn, cfg.Name, cfg.RankColumn)
	}
	if domainIdx < 0 {
		return -1, -1, fmt.Errorf("%w: %s has no %q column", ErrMissingColumn, cfg.Name, cfg.DomainColumn)
	}

	return rankIdx, domainIdx, nil
}

func toRecord(row []string, rankIdx, domainIdx int, stripScheme bool) rank.Record {
	var r int64
	if rankIdx < len(row) {
		r = parseRank(row[rankIdx])
	}

	var domain string
	if domainIdx < len(row) {
		domain = strings.TrimSpace(row[domainIdx])
		if stripScheme {
			domain = StripScheme(domain)
		}
	}

	return rank.NewRecord(r, domain)
}

// StripScheme removes a leading http:// or https:// from an origin.
func StripScheme(origin string) string {
	for _, p := range []string{"https://", "http://"} {
		if strings.HasPrefix(origin, p) {
			return strings.TrimPrefix(origin, p)
		}
	}
	return origin
}

// parseRank returns 0 for anything that is not a whole number.
func parseRank(s string) int64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// sortByRank orders valid ranks ascending and moves unusable ones to the end,
// keeping file order among equals.
func sortByRank(list []rank.Record) {
	slices.SortStableFunc(list, func(a, b rank.Record) int {
		av, bv := a.Rank > 0, b.Rank > 0
		switch {
		case !av && !bv:
			return 0
		case !av:
			return 1
		case !bv:
			return -1
		}
		return cmp.Compare(a.Rank, b.Rank)
	})
}

package sniff

import (
	"encoding/csv"
	"io"
	"strings"

	"go.uber.org/zap"
)

// IsCSV reports whether the buffer looks like comma-delimited tabular
// data.
func IsCSV(buf string) bool {
	return isDelimited(buf, "CSV", ',')
}

// IsPSV reports whether the buffer looks like pipe-delimited tabular
// data.
func IsPSV(buf string) bool {
	return isDelimited(buf, "PSV", '|')
}

// isDelimited decides whether the buffer is delimiter-separated
// tabular data by the average number of cells per row. Single-column
// text averages 1 cell per row, so over the long term 2 columns is
// the minimum; short sample buffers get a relaxed threshold.
func isDelimited(buf, format string, delimiter rune) bool {
	rows := rowLengths(buf, format, delimiter)
	if rows == nil {
		return false
	}

	cellsPerRow := func(cells, nrows int) float64 {
		if nrows == 0 {
			return 0
		}
		return float64(cells) / float64(nrows)
	}

	cells, nrows := 0, 0
	for _, n := range rows {
		cells += n
		nrows++
		if cells > 20 || nrows > 10 {
			if avg := cellsPerRow(cells, nrows); avg > 1.9 {
				zap.L().Debug("sniff: delimited table detected",
					zap.String("format", format),
					zap.Float64("cells_per_row", avg),
					zap.Int("cells", cells),
					zap.Int("rows", nrows),
				)
				return true
			}
		}
	}

	avg := cellsPerRow(cells, nrows)
	// short files get a more lenient threshold
	if (cells <= 5 || nrows <= 2) && avg > 1.5 {
		zap.L().Debug("sniff: delimited table detected (short buffer)",
			zap.String("format", format),
			zap.Float64("cells_per_row", avg),
		)
		return true
	}
	zap.L().Debug("sniff: not a delimited table",
		zap.String("format", format),
		zap.Float64("cells_per_row", avg),
		zap.Int("cells", cells),
		zap.Int("rows", nrows),
	)
	return false
}

// rowLengths parses the buffer as delimiter-separated rows and
// returns the cell count of each row, or nil if it cannot be parsed
// as a table at all (fail closed).
func rowLengths(buf, format string, delimiter rune) []int {
	r := csv.NewReader(strings.NewReader(buf))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var lengths []int
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			zap.L().Debug("sniff: unable to parse as a table",
				zap.String("format", format),
				zap.Error(err),
			)
			return nil
		}
		lengths = append(lengths, len(record))
	}
	return lengths
}

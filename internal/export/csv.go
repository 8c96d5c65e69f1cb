package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Row is a report row that knows its CSV layout.
type Row interface {
	CSVHeader() []string
	CSVRecord() []string
}

// WriteCSV writes a header line followed by one record per row. The header
// is written even when rows is empty.
func WriteCSV[T Row](w io.Writer, rows []T) error {
	var zero T
	writer := csv.NewWriter(w)

	if err := writer.Write(zero.CSVHeader()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(row.CSVRecord()); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

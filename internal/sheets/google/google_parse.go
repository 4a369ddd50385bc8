package google

import (
	"fmt"
	"strings"

	"salesdash/internal/core"
	"salesdash/internal/dataset"
)

// parseSales converts a values matrix (as returned by the Sheets API) into
// transactions. Row 0 is the header; fully blank trailing rows are skipped.
func parseSales(values [][]interface{}) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, dataset.ErrEmptyDataset
	}
	header := toStrings(values[0])
	records := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		records = append(records, toStrings(row))
	}
	for len(records) > 0 && blank(records[len(records)-1]) {
		records = records[:len(records)-1]
	}
	return dataset.ParseRecords(header, records)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// quoteSheetName wraps names containing spaces or quotes in A1 notation quotes.
func quoteSheetName(name string) string {
	if !strings.ContainsAny(name, " '!") {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrParserNotFound indicates the file extension does not map to any
	// known format.
	ErrParserNotFound = errors.New("no parser found for file format")

	// ErrParseFailure is the single error all internal parser failures are
	// normalized to. The underlying cause is wrapped for logging but callers
	// should only branch on this sentinel.
	ErrParseFailure = errors.New("unable to parse file")
)

// acceptable file extensions, which give us a clue about how to parse the file
var (
	tabDelimitedExtensions   = []string{"tsv", "tab", "bed", "vcf"}
	commaDelimitedExtensions = []string{"csv"}
	excelExtensions          = []string{"xls", "xlsx"}
)

func hasExtension(ext string, candidates []string) bool {
	for _, c := range candidates {
		if ext == c {
			return true
		}
	}
	return false
}

// ParseTable loads a delimited or spreadsheet file, inferring the format from
// the extension. The first column becomes the row index and lines starting
// with '#' are ignored.
func ParseTable(path string) (*Table, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	var records [][]string
	var err error
	switch {
	case hasExtension(ext, tabDelimitedExtensions):
		records, err = readDelimited(path, '\t', '#', 0)
	case hasExtension(ext, commaDelimitedExtensions):
		records, err = readDelimited(path, ',', '#', 0)
	case hasExtension(ext, excelExtensions):
		records, err = readSpreadsheet(path)
	default:
		slog.Error("could not infer file format from extension", "extension", ext, "path", path)
		return nil, ErrParserNotFound
	}
	if err != nil {
		slog.Error("error parsing file", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	return tableFromRecords(records), nil
}

// ParseBed re-parses a file as a minimal BED: exactly three unnamed columns
// (chrom, start, stop), no header row, extra columns ignored. Rows are
// indexed positionally since BED files carry no identifiers.
func ParseBed(path string) (*Table, error) {
	// no comment handling here: a stray header line is expected to surface as
	// a non-integer start/stop column rather than be silently dropped
	records, err := readDelimited(path, '\t', 0, -1)
	if err != nil {
		slog.Error("error parsing bed file", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	table := &Table{Columns: []string{"chrom", "start", "stop"}}
	for i, rec := range records {
		row := make([]string, 3)
		for j := 0; j < 3 && j < len(rec); j++ {
			row[j] = rec[j]
		}
		table.Rows = append(table.Rows, strconv.Itoa(i))
		table.Values = append(table.Values, row)
	}
	table.inferDtypes()
	return table, nil
}

func readDelimited(path string, delimiter, comment rune, fieldsPerRecord int) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file %v: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.Comment = comment
	reader.FieldsPerRecord = fieldsPerRecord
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading delimited file %v: %w", path, err)
	}
	return records, nil
}

func readSpreadsheet(path string) ([][]string, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening spreadsheet %v: %w", path, err)
	}
	defer file.Close()

	// data of interest must reside in the first sheet of the workbook
	sheet := file.GetSheetName(0)
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %v of %v: %w", sheet, path, err)
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 && strings.HasPrefix(row[0], "#") {
			continue
		}
		records = append(records, row)
	}
	return records, nil
}

// tableFromRecords applies the row index convention: the first record is the
// header (its leading cell names the index and is dropped), the first cell of
// every following record is that row's label. Short records are padded so the
// grid stays rectangular.
func tableFromRecords(records [][]string) *Table {
	table := &Table{}
	if len(records) == 0 {
		table.inferDtypes()
		return table
	}

	header := records[0]
	if len(header) > 1 {
		table.Columns = header[1:]
	}

	width := len(table.Columns)
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		table.Rows = append(table.Rows, rec[0])
		row := make([]string, width)
		for j := 0; j < width && j+1 < len(rec); j++ {
			row[j] = rec[j+1]
		}
		table.Values = append(table.Values, row)
	}

	table.inferDtypes()
	return table
}

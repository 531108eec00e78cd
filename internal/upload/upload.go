package upload

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"
)

const (
	// MaxFiles is the number of files accepted per request.
	MaxFiles = 5
	// MaxFileSize is the per-file size limit in bytes.
	MaxFileSize = 10 << 20
	// PreviewRows is how many rows are echoed back per file.
	PreviewRows = 5
)

var (
	// ErrInvalidType is returned for files that are not CSV, TSV, Excel or JSON.
	ErrInvalidType = errors.New("Invalid file type. Only CSV, Excel, JSON, and TSV files are allowed.")
	// ErrTooLarge is returned for files above MaxFileSize.
	ErrTooLarge = errors.New("File too large")
	// ErrTooManyFiles is returned when more than MaxFiles files are sent.
	ErrTooManyFiles = errors.New("Too many files")
)

var allowedMIMETypes = map[string]struct{}{
	"text/csv":                 {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/json":          {},
	"text/tab-separated-values": {},
}

var allowedExtensions = map[string]struct{}{
	".csv":  {},
	".tsv":  {},
	".xlsx": {},
	".xls":  {},
	".json": {},
}

// FileSummary describes one parsed upload.
type FileSummary struct {
	OriginalName string            `json:"originalName"`
	Size         int64             `json:"size"`
	RowCount     int               `json:"rowCount"`
	Columns      []string          `json:"columns"`
	Preview      []json.RawMessage `json:"preview"`
}

// Allowed reports whether a file may be uploaded, by MIME type or extension.
func Allowed(filename, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if _, ok := allowedMIMETypes[mimeType]; ok {
		return true
	}
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Parse reads one upload and summarizes it. The format is chosen by extension.
func Parse(filename string, size int64, r io.Reader) (FileSummary, error) {
	if size > MaxFileSize {
		return FileSummary{}, ErrTooLarge
	}
	data, errRead := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if errRead != nil {
		return FileSummary{}, fmt.Errorf("read %s: %w", filename, errRead)
	}
	if len(data) > MaxFileSize {
		return FileSummary{}, ErrTooLarge
	}

	var (
		parsed  *table
		errRows error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		parsed, errRows = parseDelimited(data, ',')
	case ".tsv":
		parsed, errRows = parseDelimited(data, '\t')
	case ".xlsx", ".xls":
		parsed, errRows = parseWorkbook(data)
	case ".json":
		parsed, errRows = parseJSON(data)
	default:
		// Allowed by MIME type only; nothing to parse.
		parsed = &table{}
	}
	if errRows != nil {
		return FileSummary{}, fmt.Errorf("parse %s: %w", filename, errRows)
	}

	summary := FileSummary{
		OriginalName: filename,
		Size:         size,
		RowCount:     parsed.rowCount,
		Columns:      parsed.columns,
		Preview:      parsed.preview,
	}
	if summary.Columns == nil {
		summary.Columns = []string{}
	}
	if summary.Preview == nil {
		summary.Preview = []json.RawMessage{}
	}
	return summary, nil
}

type table struct {
	rowCount int
	columns  []string
	preview  []json.RawMessage
}

// parseDelimited treats the first record as the header row.
func parseDelimited(data []byte, comma rune) (*table, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, errHeader := reader.Read()
	if errHeader == io.EOF {
		return &table{}, nil
	}
	if errHeader != nil {
		return nil, errHeader
	}
	header = uniqueHeaders(header)

	out := &table{}
	for {
		record, errRecord := reader.Read()
		if errRecord == io.EOF {
			break
		}
		if errRecord != nil {
			return nil, errRecord
		}
		keys := make([]string, 0, len(header))
		values := make([]any, 0, len(header))
		for i, name := range header {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			keys = append(keys, name)
			values = append(values, value)
		}
		if errAdd := out.add(keys, values); errAdd != nil {
			return nil, errAdd
		}
	}
	return out, nil
}

// parseWorkbook reads the first sheet. Empty cells are left out of a row and
// fully empty rows are skipped.
func parseWorkbook(data []byte) (*table, error) {
	workbook, errOpen := excelize.OpenReader(bytes.NewReader(data))
	if errOpen != nil {
		return nil, errOpen
	}
	defer func() { _ = workbook.Close() }()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return &table{}, nil
	}
	rows, errRows := workbook.GetRows(sheets[0])
	if errRows != nil {
		return nil, errRows
	}
	if len(rows) == 0 {
		return &table{}, nil
	}
	header := uniqueHeaders(rows[0])

	out := &table{}
	for _, row := range rows[1:] {
		keys := make([]string, 0, len(row))
		values := make([]any, 0, len(row))
		for i, cell := range row {
			if cell == "" || i >= len(header) {
				continue
			}
			keys = append(keys, header[i])
			values = append(values, cellValue(cell))
		}
		if len(keys) == 0 {
			continue
		}
		if errAdd := out.add(keys, values); errAdd != nil {
			return nil, errAdd
		}
	}
	return out, nil
}

// parseJSON accepts an array of rows or a single document, which becomes a
// one-row table. Column order follows the first row's keys as written.
func parseJSON(data []byte) (*table, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	items := []gjson.Result{doc}
	if doc.IsArray() {
		items = doc.Array()
	}

	out := &table{rowCount: len(items)}
	if len(items) == 0 {
		return out, nil
	}
	if items[0].IsObject() {
		items[0].ForEach(func(key, _ gjson.Result) bool {
			out.columns = append(out.columns, key.String())
			return true
		})
	}
	for i := 0; i < len(items) && i < PreviewRows; i++ {
		out.preview = append(out.preview, json.RawMessage(items[i].Raw))
	}
	return out, nil
}

// add appends a row, keeping the first row's keys as the column list.
func (t *table) add(keys []string, values []any) error {
	if t.rowCount == 0 {
		t.columns = append([]string(nil), keys...)
	}
	t.rowCount++
	if len(t.preview) >= PreviewRows {
		return nil
	}
	raw, errEncode := encodeObject(keys, values)
	if errEncode != nil {
		return errEncode
	}
	t.preview = append(t.preview, raw)
	return nil
}

// encodeObject writes a JSON object with keys in the given order.
func encodeObject(keys []string, values []any) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, errKey := json.Marshal(key)
		if errKey != nil {
			return nil, errKey
		}
		encodedValue, errValue := json.Marshal(values[i])
		if errValue != nil {
			return nil, errValue
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// uniqueHeaders names blank headers __EMPTY, __EMPTY_1, ... and suffixes duplicates.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "__EMPTY"
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// cellValue turns numeric spreadsheet cells into numbers.
func cellValue(cell string) any {
	f, errParse := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if errParse != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return cell
	}
	return f
}

package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"doacoes/internal"
	"doacoes/internal/apperr"
	"doacoes/internal/util"
)

var headerAliases = map[string][]string{
	"name":     {"nome", "name", "produto", "item"},
	"category": {"categoria", "category"},
	"amount":   {"valor", "amount", "meta", "value"},
	"type":     {"tipo", "type"},
}

// ParseCSV reads an uploaded CSV document and validates every non-empty
// data row. Columns are located by header name; a missing column reads as
// empty in every row.
func ParseCSV(r io.Reader) ([]internal.ImportItem, error) {
	br := bufio.NewReader(r)
	comma, err := sniffDelimiter(br)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.Validation("arquivo CSV inválido").WithCause(err)
	}
	return itemsFromRecords(records), nil
}

// ParseFile picks the reader by file extension.
func ParseFile(filename string, data []byte) ([]internal.ImportItem, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", "":
		return ParseCSV(bytes.NewReader(data))
	case ".xlsx":
		return ParseXLSX(bytes.NewReader(data))
	default:
		return nil, apperr.Validation(fmt.Sprintf("formato de arquivo não suportado: %s", filepath.Ext(filename)))
	}
}

func itemsFromRecords(records [][]string) []internal.ImportItem {
	items := make([]internal.ImportItem, 0, len(records))
	if len(records) == 0 {
		return items
	}

	cols := mapHeader(records[0])
	for _, record := range records[1:] {
		raw := RawRow{
			Name:     cell(record, cols["name"]),
			Category: cell(record, cols["category"]),
			Amount:   cell(record, cols["amount"]),
			Type:     cell(record, cols["type"]),
		}
		if raw.blank() && blankRecord(record) {
			continue
		}
		items = append(items, ValidateRow(len(items), raw))
	}
	return items
}

func mapHeader(header []string) map[string]int {
	cols := map[string]int{"name": -1, "category": -1, "amount": -1, "type": -1}
	for i, h := range header {
		folded := util.FoldLabel(strings.TrimPrefix(h, "\ufeff"))
		for key, aliases := range headerAliases {
			if cols[key] >= 0 {
				continue
			}
			for _, alias := range aliases {
				if folded == alias {
					cols[key] = i
					break
				}
			}
		}
	}
	return cols
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter looks at the header line: spreadsheets exported with a
// Brazilian locale separate columns with ";".
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	peek, err := br.Peek(br.Size())
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return 0, err
	}
	line, _, _ := bytes.Cut(peek, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';', nil
	}
	return ',', nil
}

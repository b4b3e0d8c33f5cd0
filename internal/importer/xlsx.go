package importer

import (
	"io"

	"github.com/xuri/excelize/v2"

	"doacoes/internal"
	"doacoes/internal/apperr"
)

// ParseXLSX reads the first sheet of a workbook with the same named
// columns as the CSV upload.
func ParseXLSX(r io.Reader) ([]internal.ImportItem, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("planilha inválida").WithCause(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []internal.ImportItem{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("planilha inválida").WithCause(err)
	}
	return itemsFromRecords(rows), nil
}

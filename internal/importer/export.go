package importer

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"doacoes/internal"
)

// ExportResultsToXLSX writes one row per bulk creation result.
func ExportResultsToXLSX(results []internal.ImportResult, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"linha", "nome", "status", "produto_id", "erro"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, res := range results {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		status := "erro"
		if res.Success {
			status = "criado"
		}
		set(1, res.RowIndex+1)
		set(2, res.Name)
		set(3, status)
		set(4, res.ProductID)
		set(5, res.Error)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

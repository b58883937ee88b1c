package main

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/dynaq/pkg/mapper"
)

// writeXLSX выгружает динамические записи в XLSX-файл:
// первая строка - имена колонок, далее данные в порядке чтения
func writeXLSX(records []*mapper.DynamicRecord, filePath, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Sheet1"
	}
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	if len(records) > 0 {
		names := records[0].Names()

		for col, name := range names {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, name); err != nil {
				return fmt.Errorf("failed to write header: %w", err)
			}
		}

		for row, rec := range records {
			for col, name := range names {
				cell, err := excelize.CoordinatesToCellName(col+1, row+2)
				if err != nil {
					return err
				}
				v, _ := rec.Get(name)
				if err := f.SetCellValue(sheetName, cell, v); err != nil {
					return fmt.Errorf("failed to write row %d: %w", row+1, err)
				}
			}
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save XLSX: %w", err)
	}
	return nil
}

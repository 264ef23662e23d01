package workbook

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"chartbook/internal/model"
	"chartbook/internal/report"
)

const (
	overviewSheet     = "Overview"
	headerRow         = 2
	headerRowHeight   = 32
	overviewColWidth  = 40
	indicatorColWidth = 13
)

// Builder owns the output workbook for one report run: the excelize file,
// the style registry, and the Overview row cursor. Sheets are added one per
// economy; Save finalizes the file exactly once at the end.
type Builder struct {
	file    *excelize.File
	formats *Registry
	tocRow  int
}

func NewBuilder() (*Builder, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", overviewSheet); err != nil {
		return nil, err
	}
	if err := file.SetColWidth(overviewSheet, "A", "A", overviewColWidth); err != nil {
		return nil, err
	}

	b := &Builder{
		file:    file,
		formats: NewRegistry(file),
		tocRow:  2,
	}

	grey := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}}
	base := []struct {
		key   string
		style *excelize.Style
	}{
		{"bold", &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{"colhdr", &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      grey,
			Alignment: &excelize.Alignment{WrapText: true},
		}},
		{"colhdr2", &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      grey,
			Alignment: &excelize.Alignment{WrapText: true, Horizontal: "right"},
		}},
		{"ralign", &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}}},
	}
	for _, format := range base {
		if _, err := b.formats.Get(format.key, format.style); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (b *Builder) Formats() *Registry { return b.formats }

// AddEconomySheet writes one economy's sheet and its Overview row. Each
// non-nil periodicity table renders as a block of period index plus indicator
// columns; the column cursor runs across blocks and only advances for
// indicators actually present in the assembled table.
func (b *Builder) AddEconomySheet(economy model.Economy, tables map[model.PeriodType]*report.Table, groups map[model.PeriodType][]model.Indicator) error {
	sheet := economy.Name
	if _, err := b.file.NewSheet(sheet); err != nil {
		return err
	}

	bold, err := b.formats.Get("bold", nil)
	if err != nil {
		return err
	}
	if err := b.file.SetCellValue(sheet, "A1", economy.Name); err != nil {
		return err
	}
	if err := b.file.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return err
	}

	tocCell := fmt.Sprintf("A%d", b.tocRow)
	if err := b.file.SetCellValue(overviewSheet, tocCell, economy.Name); err != nil {
		return err
	}
	if err := b.file.SetCellHyperLink(overviewSheet, tocCell, fmt.Sprintf("'%s'!A1", sheet), "Location"); err != nil {
		return err
	}
	b.tocRow++

	colhdr, err := b.formats.Get("colhdr", nil)
	if err != nil {
		return err
	}
	if err := b.file.SetRowHeight(sheet, headerRow, headerRowHeight); err != nil {
		return err
	}
	if err := b.file.SetRowStyle(sheet, headerRow, headerRow, colhdr); err != nil {
		return err
	}

	col := 1
	for _, periodType := range model.PeriodTypes {
		table := tables[periodType]
		if table == nil {
			continue
		}
		col, err = b.renderGroup(sheet, col, periodType, table, groups[periodType])
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) renderGroup(sheet string, col int, periodType model.PeriodType, table *report.Table, indicators []model.Indicator) (int, error) {
	cell, err := excelize.CoordinatesToCellName(col, headerRow)
	if err != nil {
		return col, err
	}
	if err := b.file.SetCellValue(sheet, cell, periodType.Label()); err != nil {
		return col, err
	}
	for i, period := range table.Periods() {
		cell, err := excelize.CoordinatesToCellName(col, headerRow+1+i)
		if err != nil {
			return col, err
		}
		if err := b.file.SetCellValue(sheet, cell, periodCellValue(period)); err != nil {
			return col, err
		}
	}
	col++

	colhdr2, err := b.formats.Get("colhdr2", nil)
	if err != nil {
		return col, err
	}

	// Descriptor order is authoritative for column order, regardless of the
	// table's internal first-seen order.
	for _, indicator := range indicators {
		if !table.HasColumn(indicator.ID) {
			continue
		}

		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return col, err
		}
		if err := b.file.SetColWidth(sheet, name, name, indicatorColWidth); err != nil {
			return col, err
		}
		cell, err := excelize.CoordinatesToCellName(col, headerRow)
		if err != nil {
			return col, err
		}
		if err := b.file.SetCellValue(sheet, cell, indicator.Name); err != nil {
			return col, err
		}
		if err := b.file.SetCellStyle(sheet, cell, cell, colhdr2); err != nil {
			return col, err
		}

		numeric, err := b.formats.GetNumeric(fmt.Sprintf("n%d", indicator.Precision), &excelize.Style{}, indicator.Precision)
		if err != nil {
			return col, err
		}

		for i, period := range table.Periods() {
			cell, err := excelize.CoordinatesToCellName(col, headerRow+1+i)
			if err != nil {
				return col, err
			}
			value, ok := table.Value(period, indicator.ID)
			if !ok {
				// Absent combinations stay blank, never zero.
				if err := b.file.SetCellValue(sheet, cell, ""); err != nil {
					return col, err
				}
				continue
			}
			if err := b.file.SetCellValue(sheet, cell, value*indicator.Multiplier); err != nil {
				return col, err
			}
			// Column-level alignment gets ignored for cells that hold
			// values, so the numeric style is applied per cell.
			if err := b.file.SetCellStyle(sheet, cell, cell, numeric); err != nil {
				return col, err
			}
		}
		col++
	}
	return col, nil
}

// periodCellValue writes plain years as numbers so they sort and format
// naturally in the sheet; quarter and month codes stay strings.
func periodCellValue(period string) any {
	if year, err := strconv.Atoi(period); err == nil {
		return year
	}
	return period
}

// Save finalizes the workbook. No partial output is flushed before this.
func (b *Builder) Save(path string) error {
	return b.file.SaveAs(path)
}

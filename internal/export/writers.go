package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"slot-history-backend/internal/history"
)

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t Table, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	return nil
}

// WriteWorkbook writes one sheet per table.
func WriteWorkbook(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return err
		}

		if err := setRow(f, t.Name, 1, t.Header); err != nil {
			return err
		}
		for r, row := range t.Rows {
			if err := setRow(f, t.Name, r+2, row); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, cells []string) error {
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// WriteOccupancyPDF renders the overall and daily occupancy rates as a report.
func WriteOccupancyPDF(w io.Writer, rates []history.OccupancyRate, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Appointment Occupancy")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.Format(time.RFC3339)))
	pdf.Ln(10)

	var overall, daily []history.OccupancyRate
	for _, r := range rates {
		switch r.Granularity {
		case history.GranularityOverall:
			overall = append(overall, r)
		case history.GranularityDay:
			daily = append(daily, r)
		}
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Overall")
	pdf.Ln(7)
	rateTable(pdf, "", overall)

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "By day")
	pdf.Ln(7)
	rateTable(pdf, "Day", daily)

	return pdf.Output(w)
}

func rateTable(pdf *gofpdf.Fpdf, bucketHeader string, rates []history.OccupancyRate) {
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(22, 6, "Center", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Test", "1", 0, "C", false, 0, "")
	if bucketHeader != "" {
		pdf.CellFormat(28, 6, bucketHeader, "1", 0, "C", false, 0, "")
	}
	pdf.CellFormat(22, 6, "Booked", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Available", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Rate (%)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, r := range rates {
		pdf.CellFormat(22, 6, fmt.Sprintf("%d", r.CenterID), "1", 0, "R", false, 0, "")
		pdf.CellFormat(55, 6, r.TestType, "1", 0, "L", false, 0, "")
		if bucketHeader != "" {
			pdf.CellFormat(28, 6, r.Bucket.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		}
		pdf.CellFormat(22, 6, fmt.Sprintf("%d", r.Booked), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, fmt.Sprintf("%d", r.Available), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, r.Rate.String(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}

// WriteAll writes every table of res as CSV, plus a workbook and an occupancy
// report, into dir. It returns the written paths.
func WriteAll(dir string, res *history.Result, delimiter rune, generated time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	tables := Tables(res)
	var paths []string
	for _, t := range tables {
		path := filepath.Join(dir, t.Name+".csv")
		if err := writeFile(path, func(w io.Writer) error { return WriteCSV(w, t, delimiter) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	xlsx := filepath.Join(dir, "slot_history.xlsx")
	if err := writeFile(xlsx, func(w io.Writer) error { return WriteWorkbook(w, tables) }); err != nil {
		return paths, err
	}
	paths = append(paths, xlsx)

	pdf := filepath.Join(dir, "occupancy.pdf")
	if err := writeFile(pdf, func(w io.Writer) error { return WriteOccupancyPDF(w, res.Occupancy, generated) }); err != nil {
		return paths, err
	}
	return append(paths, pdf), nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

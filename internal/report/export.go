package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/printcost/internal/estimation"
)

const summarySheet = "Estimations"

var summaryHeader = []any{
	"Estimation", "Project", "Client", "Quantity", "Total Cost", "Cost per Unit",
	"Profit Margin %", "Margin Amount", "Sales Price", "Status", "Created", "Delivery Date",
}

// SummaryXLSX renders summary rows as a spreadsheet.
func SummaryXLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A1", "L1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "L", 16); err != nil {
		return nil, fmt.Errorf("set col width: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			r.Name, r.ProjectName, r.ClientName, r.Quantity,
			r.TotalCost.InexactFloat64(), r.CostPerUnit.InexactFloat64(),
			r.ProfitMargin.InexactFloat64(), r.MarginAmount.InexactFloat64(),
			r.SalesPrice.InexactFloat64(), r.Status, r.Created, r.DeliveryDate,
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// EstimationPDF renders a one-page estimation report.
func EstimationPDF(e *estimation.Estimation) ([]byte, error) {
	res := e.Result

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(190, 10, "Work Order Estimation "+e.Name)
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	info := [][2]string{
		{"Project", e.ProjectName},
		{"Client", e.ClientName},
		{"Status", string(e.Status.Normalize())},
		{"Paper", e.PaperType},
		{"Delivery Date", e.DeliveryDate},
	}
	for _, kv := range info {
		pdf.Cell(40, 6, kv[0])
		pdf.Cell(150, 6, kv[1])
		pdf.Ln(6)
	}
	pdf.Ln(4)

	section(pdf, "Paper")
	lines := [][2]string{
		{"Weight per piece (kg)", res.WeightPerPieceKg.StringFixed(4)},
		{"Pieces per kg", res.PiecesPerKg.StringFixed(4)},
		{"Net weight (kg)", res.NetWeightKg.StringFixed(4)},
		{"Waste (kg)", res.WasteKg.StringFixed(4)},
		{"Total weight (kg)", res.TotalWeightKg.StringFixed(4)},
		{"Paper cost", res.TotalPaperCost.StringFixed(2)},
	}
	table(pdf, lines)

	if len(res.Processes) > 0 {
		section(pdf, "Operations")
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 7, "Process", "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, "Workstation", "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, "Rate", "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, "Qty", "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, "Total", "1", 1, "R", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, p := range res.Processes {
			pdf.CellFormat(60, 7, p.ProcessType, "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, 7, p.Workstation, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 7, p.Rate.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(25, 7, p.Qty.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 7, p.TotalCost.StringFixed(2), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	section(pdf, "Totals")
	table(pdf, [][2]string{
		{"Operations cost", res.TotalProcessCost.StringFixed(2)},
		{"Total cost", res.TotalCost.StringFixed(2)},
		{"Cost per unit", res.CostPerUnit.StringFixed(2)},
		{"Margin (" + e.Input.ProfitMargin.StringFixed(2) + "%)", res.MarginAmount.StringFixed(2)},
		{"Sales price", res.SalesPrice.StringFixed(2)},
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render estimation pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
}

func table(pdf *gofpdf.Fpdf, lines [][2]string) {
	for _, l := range lines {
		pdf.CellFormat(120, 7, l[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 7, l[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

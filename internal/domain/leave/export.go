package leave

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

var exportHeader = []string{"id", "owner_id", "type", "start_date", "end_date", "days", "status", "reason", "reviewed_by", "review_note", "created_at"}

func exportRow(req LeaveRequest) []string {
	return []string{
		req.ID,
		req.OwnerID,
		string(req.Type),
		req.StartDate.Format(dateLayout),
		req.EndDate.Format(dateLayout),
		strconv.Itoa(req.Days),
		string(req.Status),
		req.Reason,
		req.ReviewedBy,
		req.ReviewNote,
		req.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func WriteCSV(w io.Writer, reqs []LeaveRequest) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, req := range reqs {
		if err := writer.Write(exportRow(req)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

const xlsxSheet = "Leave Requests"

func WriteXLSX(w io.Writer, reqs []LeaveRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	for i, title := range exportHeader {
		if err := f.SetCellValue(xlsxSheet, cellName(i, 1), title); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(xlsxSheet, cellName(0, 1), cellName(len(exportHeader)-1, 1), headerStyle); err != nil {
		return err
	}

	for r, req := range reqs {
		row := exportRow(req)
		for c, value := range row {
			var v any = value
			if exportHeader[c] == "days" {
				v = req.Days
			}
			if err := f.SetCellValue(xlsxSheet, cellName(c, r+2), v); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(xlsxSheet, "A", "B", 38); err != nil {
		return err
	}
	if err := f.SetColWidth(xlsxSheet, "H", "H", 40); err != nil {
		return err
	}
	return f.Write(w)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

// WriteStatementPDF renders one user's balance summary and request history.
func WriteStatementPDF(w io.Writer, st Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s <%s>", st.User.Name, st.User.Email))
	pdf.Ln(6)
	if st.User.Department != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Department: %s", st.User.Department))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	for _, h := range []string{"Type", "Allocation", "Approved", "Pending", "Remaining"} {
		pdf.CellFormat(36, 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 11)
	for _, b := range st.Balance.Types {
		pdf.CellFormat(36, 7, string(b.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(36, 7, strconv.Itoa(b.Allocation), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 7, strconv.Itoa(b.ApprovedDays), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 7, strconv.Itoa(b.PendingDays), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 7, strconv.Itoa(b.RemainingBeforeReview), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Requests")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	if len(st.Requests) == 0 {
		pdf.Cell(0, 6, "No leave requests.")
		pdf.Ln(6)
	}
	for _, req := range st.Requests {
		pdf.Cell(0, 6, fmt.Sprintf("%s  %s to %s  %d day(s)  %s",
			req.Type, req.StartDate.Format(dateLayout), req.EndDate.Format(dateLayout), req.Days, req.Status))
		pdf.Ln(6)
	}

	return pdf.Output(w)
}

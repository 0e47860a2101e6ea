package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/response"
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sheet is a header row plus data rows, written as one worksheet.
type sheet struct {
	Name    string
	Headers []string
	Widths  []float64
	Rows    [][]any
}

func (s *sheet) build() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(s.Name)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range s.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(s.Name, cell, header); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(s.Name, cell, cell, headerStyle); err != nil {
			return nil, err
		}
		if col < len(s.Widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(s.Name, name, name, s.Widths[col]); err != nil {
				return nil, err
			}
		}
	}

	for i, row := range s.Rows {
		for col, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(s.Name, cell, value); err != nil {
				return nil, fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(s.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func sendWorkbook(c *gin.Context, prefix string, s *sheet) {
	data, err := s.build()
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", prefix, time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func optionalFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func sosSheet(rows []models.SosRequest, l models.Labeler) *sheet {
	s := &sheet{
		Name:    "SOS Requests",
		Headers: []string{"ID", "Created", "User Email", "User Name", "Type", "Status", "Assigned Team", "Latitude", "Longitude", "Description"},
		Widths:  []float64{8, 20, 28, 20, 20, 14, 20, 12, 12, 40},
	}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{
			r.ID, r.CreatedAt.Format(time.DateTime), r.UserEmail, r.UserName,
			l.SosType(r.SosType), l.SosStatus(r.Status), r.AssignedTeam,
			r.Latitude, r.Longitude, r.Description,
		})
	}
	return s
}

func lostFoundSheet(rows []models.LostFound, l models.Labeler) *sheet {
	s := &sheet{
		Name:    "Lost and Found",
		Headers: []string{"ID", "Created", "Type", "Status", "Person", "Age", "Location", "Latitude", "Longitude", "Reporter", "Reporter Email", "Reporter Phone", "Description", "Photo"},
		Widths:  []float64{8, 20, 10, 12, 22, 6, 24, 12, 12, 20, 28, 16, 40, 40},
	}
	for _, r := range rows {
		var age, photo any
		if r.Age != nil {
			age = *r.Age
		}
		if r.PhotoURL != nil {
			photo = *r.PhotoURL
		}
		s.Rows = append(s.Rows, []any{
			r.ID, r.CreatedAt.Format(time.DateTime), l.ReportType(r.ReportType), l.ReportStatus(r.Status),
			r.PersonName, age, r.Location, optionalFloat(r.Latitude), optionalFloat(r.Longitude),
			r.UserName, r.UserEmail, r.UserPhone, r.Description, photo,
		})
	}
	return s
}

func (h *Handlers) handleExportSos(c *gin.Context) {
	rows, err := models.ListSosRequests(h.db, models.SosFilter{Status: c.Query("status"), SosType: c.Query("sos_type")})
	if err != nil {
		response.Error(c, err)
		return
	}
	sendWorkbook(c, "sos-requests", sosSheet(rows, h.labels(c)))
}

func (h *Handlers) handleExportLostFound(c *gin.Context) {
	rows, err := models.ListLostFound(h.db, models.LostFoundFilter{
		ReportType: c.Query("report_type"),
		Status:     c.Query("status"),
		Search:     c.Query("search"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	sendWorkbook(c, "lost-found", lostFoundSheet(rows, h.labels(c)))
}

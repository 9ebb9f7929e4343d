package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/xuri/excelize/v2"

	"github.com/tepuyroraima/roster/app/roster"
)

const (
	exportSheet    = "Registros"
	exportFileName = "registros_banda_tepuy_roraima.xlsx"
)

var exportHeaders = []any{"Nombre", "Apellido", "Cédula", "Teléfono", "Fecha de Nacimiento", "Edad",
	"Dirección", "Instrumento", "Fecha de Inscripción"}

// handleExport sends the currently filtered and sorted roster as xlsx
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	view := s.loadRoster(r.Context(), r.FormValue("search"), s.getSortMode(r))
	if view.failed {
		http.Error(w, "Failed to load students", http.StatusServiceUnavailable)
		return
	}

	data, err := buildWorkbook(view.students, s.now())
	if err != nil {
		log.Printf("[ERROR] failed to build export: %v", err)
		http.Error(w, "Failed to export students", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[WARN] failed to write export: %v", err)
		return
	}
	log.Printf("[INFO] exported %d students", len(view.students))
}

// exportRows converts students to spreadsheet rows, one per student in the same order
func exportRows(students []roster.Student, now time.Time) [][]any {
	rows := make([][]any, 0, len(students))
	for _, st := range students {
		rows = append(rows, []any{
			st.Nombre,
			st.Apellido,
			st.Cedula,
			st.Telefono,
			shortDate(st.FechaNacimiento),
			st.Age(now),
			st.Direccion,
			st.Instrumento,
			shortDate(st.FechaInscripcion),
		})
	}
	return rows
}

// buildWorkbook makes xlsx document with a header row and one row per student
func buildWorkbook(students []roster.Student, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("[WARN] failed to close workbook: %v", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to make header style: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range exportRows(students, now) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to make cell name: %w", err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "I", 20); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

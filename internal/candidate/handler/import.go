package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	candidateservice "examsite/internal/candidate/service"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/httputil"
	"examsite/pkg/requestcontext"
)

const maxImportBytes = 2 << 20

var (
	importColumns  = []string{"name", "id_number", "phone", "exam_product"}
	requiredColumn = map[string]bool{"name": true, "id_number": true, "exam_product": true}
	templateSample = []string{"Zhang San", "110105199001010011", "13800138000", "VLOS"}
)

// HandleImportTemplate serves an empty import file with one sample row.
func (h *Handler) HandleImportTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="candidate-import-template.csv"`)
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.Write(importColumns)
	_ = cw.Write(templateSample)
	cw.Flush()
}

// HandleImport registers every row of a CSV upload, or none of them. A file
// with bad rows answers 422 with one entry per bad line.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "text/csv" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "import expects a text/csv body"))
		return
	}
	var instID id.InstitutionID
	if raw := r.URL.Query().Get("institution_id"); raw != "" {
		var err error
		if instID, err = id.ParseInstitutionID(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	rows, err := parseImport(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.Import(ctx, candidateservice.ImportCommand{InstitutionID: instID, Rows: rows})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to import candidates", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if len(report.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, fromImportReport(report))
}

// parseImport reads a header line and the data rows under it. Header names
// are matched case-insensitively and in any order; unknown columns are
// ignored. Line numbers are the file's own, so quoted newlines keep them true.
func parseImport(body io.Reader) ([]candidateservice.ImportRow, error) {
	cr := csv.NewReader(body)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, dErrors.New(dErrors.CodeValidation, "import file is empty")
	}
	if err != nil {
		return nil, csvError(err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range importColumns {
		if _, ok := index[col]; !ok && requiredColumn[col] {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("import file is missing the %s column", col))
		}
	}

	var rows []candidateservice.ImportRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := cr.FieldPos(0)
		field := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		rows = append(rows, candidateservice.ImportRow{
			Line:        line,
			Name:        field("name"),
			IDNumber:    field("id_number"),
			Phone:       field("phone"),
			ExamProduct: field("exam_product"),
		})
	}
	return rows, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("import file is not valid CSV at line %d: %v", pe.Line, pe.Err))
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read import file")
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"examsite/internal/candidate/models"
	catalogmodels "examsite/internal/catalog/models"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/requestcontext"
)

// MaxImportRows bounds one import file.
const MaxImportRows = 1000

// ImportRow is one data line of an import file. Line counts the header, so
// the first data row is line 2.
type ImportRow struct {
	Line        int
	Name        string
	IDNumber    string
	Phone       string
	ExamProduct string
}

type ImportCommand struct {
	InstitutionID id.InstitutionID
	Rows          []ImportRow
}

// RowError explains why one line was refused.
type RowError struct {
	Line    int
	Message string
}

// ImportReport is the outcome of an import. Either every row is imported and
// Errors is empty, or nothing is imported and Errors lists each bad line.
type ImportReport struct {
	Total    int
	Imported []*models.Candidate
	Errors   []RowError
}

var errRowsRejected = errors.New("import rows rejected")

// Import registers every row for one institution in a single transaction.
// All rows are checked before anything is written; a failed write rolls the
// whole file back and is reported against its line.
func (s *Service) Import(ctx context.Context, cmd ImportCommand) (*ImportReport, error) {
	switch {
	case len(cmd.Rows) == 0:
		return nil, dErrors.New(dErrors.CodeValidation, "import file has no candidate rows")
	case len(cmd.Rows) > MaxImportRows:
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("import file has more than %d rows", MaxImportRows))
	}
	instID, err := s.registeringInstitution(ctx, cmd.InstitutionID)
	if err != nil {
		return nil, err
	}
	products, err := s.productIndex(ctx)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Total: len(cmd.Rows)}
	commands := make([]RegisterCommand, len(cmd.Rows))
	seen := make(map[string]int, len(cmd.Rows))
	for i, row := range cmd.Rows {
		rc, msg, err := s.checkRow(ctx, row, instID, products, seen)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			report.Errors = append(report.Errors, RowError{Line: row.Line, Message: msg})
			continue
		}
		commands[i] = rc
	}
	if len(report.Errors) > 0 {
		s.logImport(ctx, instID, report)
		return report, nil
	}

	var failed *RowError
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		imported := make([]*models.Candidate, 0, len(commands))
		for i, rc := range commands {
			c, err := s.Register(ctx, rc)
			if err != nil {
				if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
					failed = &RowError{Line: cmd.Rows[i].Line, Message: de.Message}
					return errRowsRejected
				}
				return err
			}
			imported = append(imported, c)
		}
		report.Imported = imported
		return nil
	})
	if failed != nil {
		report.Imported = nil
		report.Errors = []RowError{*failed}
		s.logImport(ctx, instID, report)
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	s.logImport(ctx, instID, report)
	return report, nil
}

// checkRow validates one row without writing. A non-empty message rejects
// the row; an error aborts the import.
func (s *Service) checkRow(ctx context.Context, row ImportRow, instID id.InstitutionID,
	products map[string]*catalogmodels.ExamProduct, seen map[string]int) (RegisterCommand, string, error) {
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return RegisterCommand{}, "name is required", nil
	}
	idNumber, err := models.NormalizeIDNumber(row.IDNumber)
	if err != nil {
		return RegisterCommand{}, "id_number must be 18 characters: 17 digits and a digit or X", nil
	}
	if first, dup := seen[idNumber]; dup {
		return RegisterCommand{}, fmt.Sprintf("id_number repeats line %d", first), nil
	}
	seen[idNumber] = row.Line

	product, ok := products[strings.ToLower(strings.TrimSpace(row.ExamProduct))]
	switch {
	case !ok:
		return RegisterCommand{}, fmt.Sprintf("exam product %q does not exist", strings.TrimSpace(row.ExamProduct)), nil
	case !product.IsActive():
		return RegisterCommand{}, fmt.Sprintf("exam product %q is inactive", product.Name), nil
	}

	if _, err := s.store.FindByIDNumber(ctx, idNumber); err == nil {
		return RegisterCommand{}, "a candidate with this id_number already exists", nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return RegisterCommand{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing candidates")
	}

	return RegisterCommand{
		Name:          name,
		IDNumber:      idNumber,
		Phone:         row.Phone,
		InstitutionID: instID,
		ExamProductID: product.ID,
	}, "", nil
}

// productIndex maps lower-cased product names and ids to products so a file
// may name a product either way.
func (s *Service) productIndex(ctx context.Context) (map[string]*catalogmodels.ExamProduct, error) {
	all, err := s.catalog.ListExamProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*catalogmodels.ExamProduct, 2*len(all))
	for _, p := range all {
		out[strings.ToLower(p.Name)] = p
		out[p.ID.String()] = p
	}
	return out, nil
}

func (s *Service) logImport(ctx context.Context, instID id.InstitutionID, report *ImportReport) {
	if len(report.Errors) > 0 {
		s.logger.WarnContext(ctx, "candidate import rejected",
			"request_id", requestcontext.RequestID(ctx),
			"institution_id", instID.String(),
			"rows", report.Total,
			"bad_rows", len(report.Errors),
		)
		return
	}
	s.logger.InfoContext(ctx, "candidates imported",
		"request_id", requestcontext.RequestID(ctx),
		"institution_id", instID.String(),
		"rows", report.Total,
	)
}

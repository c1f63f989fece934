package service

import (
	"context"
	"io"
	"log/slog"

	"examsite/internal/candidate/models"
	"examsite/internal/candidate/store"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/platform/tx"
)

// conflictOnCreate accepts creates until failAt, then reports a unique
// violation as a concurrent registration would.
type conflictOnCreate struct {
	*store.InMemory
	creates int
	failAt  int
}

func (c *conflictOnCreate) Create(ctx context.Context, cand *models.Candidate) error {
	c.creates++
	if c.creates == c.failAt {
		return sentinel.ErrConflict
	}
	return c.InMemory.Create(ctx, cand)
}

func (s *CandidateServiceSuite) rows(n int) []ImportRow {
	out := make([]ImportRow, n)
	for i := range out {
		out[i] = ImportRow{Line: i + 2, Name: "Li Lei", IDNumber: s.nextIDNumber(), ExamProduct: "vlos"}
	}
	return out
}

func (s *CandidateServiceSuite) stored() int {
	_, total, err := s.store.List(s.ctx, models.Filter{Limit: 100})
	s.Require().NoError(err)
	return total
}

func (s *CandidateServiceSuite) TestImport() {
	rows := s.rows(3)
	rows[1].ExamProduct = s.product.String()
	rows[2].IDNumber = "  " + rows[2].IDNumber[:17] + "x"

	report, err := s.service.Import(s.asInstitution(s.instA), ImportCommand{Rows: rows})
	s.Require().NoError(err)
	s.Empty(report.Errors)
	s.Equal(3, report.Total)
	s.Require().Len(report.Imported, 3)
	for _, c := range report.Imported {
		s.Equal(s.instA, c.InstitutionID, "institution callers import into their own institution")
		s.Equal(models.StatusPendingReview, c.Status)
	}
	s.Equal(rows[2].IDNumber[2:19], report.Imported[2].IDNumber[:17])
	s.Equal(byte('X'), report.Imported[2].IDNumber[17])
	s.Equal(3, s.stored())
}

func (s *CandidateServiceSuite) TestImportReportsEveryBadRowAndWritesNothing() {
	existing := s.register(s.asAdmin(), s.instA)
	rows := s.rows(6)
	rows[0].Name = "   "
	rows[1].IDNumber = "12345"
	rows[2].ExamProduct = "BVLOS"
	rows[4].IDNumber = rows[3].IDNumber
	rows[5].IDNumber = existing.IDNumber

	report, err := s.service.Import(s.asAdmin(), ImportCommand{InstitutionID: s.instA, Rows: rows})
	s.Require().NoError(err)
	s.Empty(report.Imported)
	s.Equal(6, report.Total)

	lines := make(map[int]string, len(report.Errors))
	for _, e := range report.Errors {
		lines[e.Line] = e.Message
	}
	s.Len(lines, 5)
	s.Contains(lines[2], "name")
	s.Contains(lines[3], "id_number")
	s.Contains(lines[4], "BVLOS")
	s.NotContains(lines, 5, "the first occurrence of a repeated id_number is fine")
	s.Contains(lines[6], "line 5")
	s.Contains(lines[7], "already exists")
	s.Equal(1, s.stored(), "a file with bad rows imports nothing")
}

func (s *CandidateServiceSuite) TestImportRollsBackWhenAWriteFails() {
	inner := store.NewInMemory()
	failing := &conflictOnCreate{InMemory: inner, failAt: 3}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(failing, s.catalog, WithLogger(logger), WithTransactor(tx.NewMemory(inner)))

	report, err := svc.Import(s.asAdmin(), ImportCommand{InstitutionID: s.instB, Rows: s.rows(4)})
	s.Require().NoError(err)
	s.Empty(report.Imported)
	s.Require().Len(report.Errors, 1)
	s.Equal(4, report.Errors[0].Line)
	s.Contains(report.Errors[0].Message, "already exists")

	_, total, err := inner.List(s.ctx, models.Filter{Limit: 100})
	s.Require().NoError(err)
	s.Zero(total, "rows written before the failure are rolled back")
}

func (s *CandidateServiceSuite) TestImportRejections() {
	s.Run("empty file", func() {
		_, err := s.service.Import(s.asAdmin(), ImportCommand{InstitutionID: s.instA})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("too many rows", func() {
		rows := make([]ImportRow, MaxImportRows+1)
		_, err := s.service.Import(s.asAdmin(), ImportCommand{InstitutionID: s.instA, Rows: rows})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("institution cannot import for another", func() {
		_, err := s.service.Import(s.asInstitution(s.instA), ImportCommand{InstitutionID: s.instB, Rows: s.rows(1)})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Zero(s.stored())
	})
}

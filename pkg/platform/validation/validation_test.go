package validation

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "examsite/pkg/domain-errors"
)

type sample struct {
	Name     string   `json:"name" validate:"notblank"`
	ExamDate string   `json:"exam_date" validate:"required,civildate"`
	StartAt  string   `json:"start_time" validate:"omitempty,clock"`
	IDs      []string `json:"candidate_ids" validate:"required,min=1,dive,uuid"`
}

func TestStruct(t *testing.T) {
	t.Run("valid payload passes", func(t *testing.T) {
		err := Struct(sample{
			Name:     "Morning theory",
			ExamDate: "2025-03-01",
			StartAt:  "09:00",
			IDs:      []string{"550e8400-e29b-41d4-a716-446655440000"},
		})
		require.NoError(t, err)
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := Struct(sample{Name: "  ", ExamDate: "01/03/2025", StartAt: "9am"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "name cannot be blank")
		assert.Contains(t, err.Error(), "exam_date must be a date in YYYY-MM-DD format")
		assert.Contains(t, err.Error(), "start_time must be a time in HH:MM format")
		assert.Contains(t, err.Error(), "candidate_ids")
	})
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("09:15")
	require.NoError(t, err)
	assert.Equal(t, civil.Time{Hour: 9, Minute: 15}, got)

	got, err = ParseClock("17:45:30")
	require.NoError(t, err)
	assert.Equal(t, civil.Time{Hour: 17, Minute: 45, Second: 30}, got)

	_, err = ParseClock("25:00")
	require.Error(t, err)
}

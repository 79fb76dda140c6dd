package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scorePayload struct {
	StudentID string   `json:"student_id" validate:"required"`
	Score     *float64 `json:"score" validate:"omitempty,gte=0"`
}

func TestTranslateUsesJSONNames(t *testing.T) {
	v := New()
	negative := -1.0

	err := v.Struct(scorePayload{Score: &negative})
	require.Error(t, err)

	fields := v.Translate(err)
	assert.Equal(t, "student_id is a required field", fields["student_id"])
	assert.Contains(t, fields["score"], "score must be 0 or greater")
}

func TestTranslateOtherErrors(t *testing.T) {
	fields := New().Translate(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"detail": "unexpected EOF"}, fields)
}

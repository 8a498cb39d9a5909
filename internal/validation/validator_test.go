package validation_test

import (
	"testing"

	"github.com/listenupapp/watcherd/internal/errors"
	"github.com/listenupapp/watcherd/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Watch   string   `yaml:"watch" validate:"required"`
	Events  []string `yaml:"events,flow" validate:"required,min=1"`
	Command string   `yaml:"command" validate:"required"`
	Rate    float64  `yaml:"rate" validate:"gte=0"`
	Level   string   `yaml:"level" validate:"omitempty,oneof=debug info"`
}

func validRecord() testRecord {
	return testRecord{
		Watch:   "/srv",
		Events:  []string{"create"},
		Command: "true",
	}
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(validRecord()))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name    string
		mutate  func(*testRecord)
		field   string
		message string
	}{
		{
			name:    "missing required field",
			mutate:  func(r *testRecord) { r.Command = "" },
			field:   "command",
			message: "is required",
		},
		{
			name:    "empty list",
			mutate:  func(r *testRecord) { r.Events = []string{} },
			field:   "events",
			message: "must have at least 1 entries",
		},
		{
			name:    "negative number",
			mutate:  func(r *testRecord) { r.Rate = -1 },
			field:   "rate",
			message: "must be greater than or equal to 0",
		},
		{
			name:    "not one of",
			mutate:  func(r *testRecord) { r.Level = "trace" },
			field:   "level",
			message: "must be one of: debug info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := v.Validate(rec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.message, details[tt.field])
			assert.Contains(t, err.Error(), tt.field+" "+tt.message)
		})
	}
}

func TestValidator_YAMLFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRecord{})
	require.Error(t, err)

	assert.Equal(t, "command is required; events is required; watch is required", err.Error())
	assert.NotContains(t, err.Error(), "Watch")
}

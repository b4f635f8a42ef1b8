package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomValidators(t *testing.T) {
	validate, translator := NewValidator()

	type options struct {
		Threshold float64 `json:"threshold" validate:"threshold"`
		Mode      string  `json:"mode" validate:"mergemode"`
	}

	tests := []struct {
		name       string
		opts       options
		wantFields []string
	}{
		{name: "valid", opts: options{Threshold: 10, Mode: "union-find"}},
		{name: "default mode", opts: options{Threshold: 0}},
		{name: "bad threshold", opts: options{Threshold: 101}, wantFields: []string{"threshold"}},
		{name: "bad mode", opts: options{Threshold: 50, Mode: "fixed-point"}, wantFields: []string{"mode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.opts)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verr, ok := TranslateErrors(err, translator).(*ValidationError)
			require.True(t, ok)
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
				assert.NotEmpty(t, f.Error)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("ENV", "TEST")
	validate, _ := NewValidator()

	conf := NewConfig()
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, 10.0, conf.Plagiarism.Threshold)
	assert.NoError(t, conf.Validate(validate))

	conf.OCR.Provider = "whisper"
	conf.OCR.APIKey = ""
	assert.Error(t, conf.Validate(validate))
}

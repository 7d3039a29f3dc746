package remote_test

import (
	"testing"

	"github.com/Alia5/keybridge/internal/remote"
	"github.com/stretchr/testify/assert"
)

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		null bool
	}{
		{"object", `{"message":"x"}`, false},
		{"empty", ``, true},
		{"garbage", `<html>oops</html>`, true},
		{"truncated", `{"message":`, true},
		{"json null", `null`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.null, remote.ParseDocument([]byte(tt.raw)).IsNull())
		})
	}
}

func TestNullDocumentQueries(t *testing.T) {
	var d remote.Document
	assert.True(t, d.IsNull())
	assert.False(t, d.Get("message").Exists())
	assert.Error(t, d.Validate(remote.CaptureSchema))
}

func TestValidateSchemas(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		raw     string
		wantErr string
	}{
		{"capture ok", remote.CaptureSchema, `{"message":""}`, ""},
		{"capture missing message", remote.CaptureSchema, `{"status":"ok"}`, "message"},
		{"send ok", remote.SendSchema, `{"response":{"choices":[{"message":{"content":"hi"}}]}}`, ""},
		{"send missing response", remote.SendSchema, `{}`, "response"},
		{"send no choices", remote.SendSchema, `{"response":{}}`, "choices"},
		{"send empty choices", remote.SendSchema, `{"response":{"choices":[]}}`, "choices"},
		{"send missing message", remote.SendSchema, `{"response":{"choices":[{}]}}`, "message"},
		{"send missing content", remote.SendSchema, `{"response":{"choices":[{"message":{}}]}}`, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := remote.ParseDocument([]byte(tt.raw)).Validate(tt.schema)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

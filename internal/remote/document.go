package remote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Document is a parsed JSON reply. The zero value is the null document
// returned for every failed exchange.
type Document struct {
	raw   string
	valid bool
}

// ParseDocument wraps b when it holds valid JSON and returns the null
// document otherwise.
func ParseDocument(b []byte) Document {
	if len(b) == 0 || !gjson.ValidBytes(b) {
		return Document{}
	}
	return Document{raw: string(b), valid: true}
}

// IsNull reports whether the exchange failed or the reply was not JSON.
func (d Document) IsNull() bool {
	return !d.valid || gjson.Parse(d.raw).Type == gjson.Null
}

// Get queries the document with a gjson path such as
// "response.choices.0.message.content".
func (d Document) Get(path string) gjson.Result {
	if !d.valid {
		return gjson.Result{}
	}
	return gjson.Get(d.raw, path)
}

// Raw returns the JSON text.
func (d Document) Raw() string { return d.raw }

// Validate checks the document against a JSON schema and reports every
// violation in one error.
func (d Document) Validate(schema string) error {
	if !d.valid {
		return errors.New("null document")
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(d.raw),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("unexpected response shape: %s", strings.Join(msgs, "; "))
}

// CaptureSchema is the reply shape of /capture.
const CaptureSchema = `{
  "type": "object",
  "required": ["message"]
}`

// SendSchema is the reply shape of /send_request.
const SendSchema = `{
  "type": "object",
  "required": ["response"],
  "properties": {
    "response": {
      "type": "object",
      "required": ["choices"],
      "properties": {
        "choices": {
          "type": "array",
          "minItems": 1,
          "items": [{
            "type": "object",
            "required": ["message"],
            "properties": {
              "message": {
                "type": "object",
                "required": ["content"]
              }
            }
          }]
        }
      }
    }
  }
}`

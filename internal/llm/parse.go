package llm

import (
	"encoding/json"
	"strings"

	"github.com/spherical/recipe-extractor/internal/domain"
)

// Result is the outcome of recovering JSON from free-text model output.
// Models wrap JSON in prose, markdown fences or commentary, so recovery
// scans for the outermost matching bracket pair instead of decoding the
// whole response. A Result is either parsed (Value set) or unparseable
// (Raw holds the original text for diagnostics).
type Result struct {
	Value json.RawMessage
	Raw   string
}

// Parsed reports whether JSON was recovered.
func (r Result) Parsed() bool {
	return r.Value != nil
}

// Decode unmarshals the recovered JSON into v. Calling Decode on an
// unparseable result is an extraction error, never a panic.
func (r Result) Decode(v any) error {
	if !r.Parsed() {
		return domain.ExtractionError("no JSON found in model output", nil)
	}
	if err := json.Unmarshal(r.Value, v); err != nil {
		return domain.ExtractionError("decode recovered JSON", err)
	}
	return nil
}

// RecoverObject extracts the first '{' through the last '}' from content
// and validates the slice as JSON.
func RecoverObject(content string) Result {
	return recoverBetween(content, '{', '}')
}

// RecoverArray extracts the first '[' through the last ']' from content
// and validates the slice as JSON.
func RecoverArray(content string) Result {
	return recoverBetween(content, '[', ']')
}

func recoverBetween(content string, open, close byte) Result {
	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, close)
	if start == -1 || end == -1 || end < start {
		return Result{Raw: content}
	}

	candidate := content[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return Result{Raw: content}
	}
	return Result{Value: json.RawMessage(candidate), Raw: content}
}

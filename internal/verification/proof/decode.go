package proof

import (
	"bytes"
	"encoding/json"
	"strings"
)

func decode(blob string, p *Proof) error {
	return json.NewDecoder(strings.NewReader(blob)).Decode(p)
}

// Normalize turns a request's proofBlob into the raw JSON text of the proof.
// Clients send either a JSON string holding the proof or the proof object
// itself. Empty input and null yield ""; other JSON is passed through
// and rejected by Parse.
func Normalize(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] != '"' {
		return string(trimmed)
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

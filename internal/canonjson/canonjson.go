// Package canonjson produces the canonical JSON byte representation used
// wherever the ledger hashes or signs a structured value: UTF-8, object keys
// sorted ascending, no whitespace between tokens. Go's encoding/json already
// sorts map keys on marshal, but it preserves struct field declaration order,
// so canonjson re-marshals through map[string]interface{} to guarantee the
// same byte string regardless of how the source struct was defined.
package canonjson

import (
	"bytes"
	"encoding/json"
)

// Marshal returns the canonical JSON bytes for v. v is first marshaled
// normally, then re-decoded into a generic map/slice tree and re-encoded,
// which normalizes key order at every nesting level.
func Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}

	// json.Encoder.Encode appends a trailing newline; canonical output has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalMap is a convenience wrapper for values already shaped as
// map[string]interface{}, used by the certificate and transaction
// signing-input builders to assemble exactly the field subset that gets
// signed.
func MarshalMap(fields map[string]interface{}) ([]byte, error) {
	return Marshal(fields)
}

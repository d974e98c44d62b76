// Package codec is the job's stand-in for the external argument/return
// (de)serialization collaborator named in spec.md §1 as out of scope. A
// real deployment would share this codec with the master/worker/client;
// here it is implemented directly on top of goccy/go-json, the JSON
// library module/echo depends on for its own request/response bodies, kept
// intentionally thin so the interesting code stays in the session driver.
package codec

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Encode serializes v for the wire.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return data, nil
}

// Decode deserializes data into v.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	return nil
}

// Call is the wire shape of a CALL or INIT_OBJECT payload: positional and
// keyword arguments, mirroring the Python (args, kwargs) tuple.
type Call struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// EncodeCall serializes a Call payload.
func EncodeCall(c Call) ([]byte, error) {
	return Encode(c)
}

// DecodeCall deserializes a Call payload.
func DecodeCall(data []byte) (Call, error) {
	var c Call
	if err := Decode(data, &c); err != nil {
		return Call{}, err
	}
	return c, nil
}

// FileBundle is the wire shape of a SEND_FILE payload.
type FileBundle map[string][]byte

package gateway

import "encoding/json"

// Codec encodes and decodes application payloads. Defaults to JSON but is
// pluggable: the wire format is an interface seam, not a fixed format.
type Codec interface {
	Decode(raw []byte) (any, error)
	Encode(v any) ([]byte, error)
}

// JSONCodec is the default Codec.
type JSONCodec struct{}

func (JSONCodec) Decode(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

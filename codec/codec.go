// Package codec wraps CBOR encoding for stored records.
// Deterministic encoding keeps the same logical record byte-identical,
// which makes Badger values stable across rewrites.
package codec

import "github.com/fxamacker/cbor/v2"

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Unknown fields are ignored for
// forward compatibility.
func Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeFields deterministically serializes a fixed sequence of fields
// into a little-endian, length-prefixed byte string. It is the
// canonical preimage builder for proof-of-work hashing (spec §4.1):
// every variable-length field (string, []byte) is preceded by its
// uint32 length, every fixed-width integer is written as a fixed
// little-endian width. Supported field types: string, []byte, int32,
// int64, uint64.
func EncodeFields(fields ...any) ([]byte, error) {
	var buf bytes.Buffer

	for _, f := range fields {
		switch v := f.(type) {
		case string:
			if err := writeLenPrefixed(&buf, []byte(v)); err != nil {
				return nil, err
			}
		case []byte:
			if err := writeLenPrefixed(&buf, v); err != nil {
				return nil, err
			}
		case int32:
			if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
				return nil, fmt.Errorf("codec: encode int32 field: %w", err)
			}
		case int64:
			if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
				return nil, fmt.Errorf("codec: encode int64 field: %w", err)
			}
		case uint64:
			if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
				return nil, fmt.Errorf("codec: encode uint64 field: %w", err)
			}
		default:
			return nil, fmt.Errorf("codec: EncodeFields: unsupported field type %T", f)
		}
	}

	return buf.Bytes(), nil
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("codec: encode field length: %w", err)
	}
	buf.Write(data)
	return nil
}

// Package zcl holds the subset of the Zigbee Cluster Library needed by
// the supported quirks: type codecs, attribute and command definitions,
// and the static cluster registry.
package zcl

import (
	"encoding/binary"
	"fmt"
)

// ZCL data type IDs used by the supported clusters.
const (
	TypeNoData  uint8 = 0x00
	TypeBool    uint8 = 0x10
	TypeBitmap8 uint8 = 0x18
	TypeUint8   uint8 = 0x20
	TypeUint16  uint8 = 0x21
	TypeUint32  uint8 = 0x23
	TypeInt8    uint8 = 0x28
	TypeInt16   uint8 = 0x29
	TypeEnum8   uint8 = 0x30
	TypeCharStr uint8 = 0x42
)

// TypeSize returns the wire size in bytes of a fixed-size type, or -1
// for variable-length types.
func TypeSize(typeID uint8) int {
	switch typeID {
	case TypeNoData:
		return 0
	case TypeBool, TypeBitmap8, TypeUint8, TypeInt8, TypeEnum8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32:
		return 4
	default:
		return -1
	}
}

// TypeName returns a readable name for a type ID.
func TypeName(typeID uint8) string {
	switch typeID {
	case TypeNoData:
		return "nodata"
	case TypeBool:
		return "bool"
	case TypeBitmap8:
		return "map8"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeEnum8:
		return "enum8"
	case TypeCharStr:
		return "string"
	default:
		return fmt.Sprintf("0x%02X", typeID)
	}
}

// DecodeValue decodes one typed value from little-endian wire data,
// returning the Go value and the number of bytes consumed.
func DecodeValue(typeID uint8, data []byte) (interface{}, int, error) {
	if typeID == TypeCharStr {
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("zcl: missing length byte for string")
		}
		n := int(data[0])
		if n == 0xFF {
			return nil, 1, nil // invalid-value marker
		}
		if len(data) < 1+n {
			return nil, 0, fmt.Errorf("zcl: string truncated: need %d, have %d", n, len(data)-1)
		}
		return string(data[1 : 1+n]), 1 + n, nil
	}

	size := TypeSize(typeID)
	if size < 0 {
		return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
	}
	if size == 0 {
		return nil, 0, nil
	}
	if len(data) < size {
		return nil, 0, fmt.Errorf("zcl: short value for %s: need %d, have %d", TypeName(typeID), size, len(data))
	}

	switch typeID {
	case TypeBool:
		return data[0] != 0, 1, nil
	case TypeBitmap8, TypeUint8, TypeEnum8:
		return data[0], 1, nil
	case TypeInt8:
		return int8(data[0]), 1, nil
	case TypeUint16:
		return binary.LittleEndian.Uint16(data[:2]), 2, nil
	case TypeInt16:
		return int16(binary.LittleEndian.Uint16(data[:2])), 2, nil
	case TypeUint32:
		return binary.LittleEndian.Uint32(data[:4]), 4, nil
	}
	return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
}

// EncodeValue encodes a Go value into ZCL wire format.
func EncodeValue(typeID uint8, val interface{}) ([]byte, error) {
	switch typeID {
	case TypeBool:
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot encode %T as bool", val)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case TypeBitmap8, TypeUint8, TypeEnum8:
		v, ok := toUint(val)
		if !ok || v > 0xFF {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as %s", val, val, TypeName(typeID))
		}
		return []byte{uint8(v)}, nil

	case TypeUint16:
		v, ok := toUint(val)
		if !ok || v > 0xFFFF {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as uint16", val, val)
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(v))
		return buf, nil

	case TypeUint32:
		v, ok := toUint(val)
		if !ok || v > 0xFFFFFFFF {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as uint32", val, val)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return buf, nil

	case TypeInt8:
		v, ok := toInt(val)
		if !ok || v < -128 || v > 127 {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as int8", val, val)
		}
		return []byte{byte(int8(v))}, nil

	case TypeInt16:
		v, ok := toInt(val)
		if !ok || v < -32768 || v > 32767 {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as int16", val, val)
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
		return buf, nil

	case TypeCharStr:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot encode %T as string", val)
		}
		if len(s) > 254 {
			return nil, fmt.Errorf("zcl: string too long: %d", len(s))
		}
		buf := make([]byte, 1+len(s))
		buf[0] = uint8(len(s))
		copy(buf[1:], s)
		return buf, nil
	}
	return nil, fmt.Errorf("zcl: encode not implemented for type 0x%02X", typeID)
}

func toUint(v interface{}) (uint64, bool) {
	switch x := v.(type) {
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	case int:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case float64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	}
	return 0, false
}

func toInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case float64:
		return int64(x), true
	}
	return 0, false
}

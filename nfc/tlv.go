package nfc

// TLV types used in Type 2 tag memory.
const (
	TLVNull       = 0x00
	TLVLockCtrl   = 0x01
	TLVMemCtrl    = 0x02
	TLVNDEF       = 0x03
	TLVTerminator = 0xFE
)

// TLVEncode wraps data in a TLV of the given type, followed by a
// terminator TLV. Lengths >= 0xFF use the three-byte long format.
func TLVEncode(data []byte, tlvType byte) []byte {
	length := len(data)
	var result []byte

	result = append(result, tlvType)
	if length < 0xFF {
		result = append(result, byte(length))
	} else {
		result = append(result, 0xFF, byte(length>>8), byte(length&0xFF))
	}
	result = append(result, data...)
	result = append(result, TLVTerminator)
	return result
}

// tlvValueOffset returns the offset of the value relative to the type
// byte, or false on a malformed TLV.
func tlvValueOffset(data []byte) (int, bool) {
	if len(data) < 2 {
		return 0, false
	}
	if data[1] == 0xFF {
		if len(data) < 4 {
			return 0, false
		}
		return 4, true
	}
	return 2, true
}

// tlvLength extracts the value length from a TLV starting at the type
// byte.
func tlvLength(data []byte) int {
	if len(data) < 2 {
		return 0
	}
	if data[1] == 0xFF {
		if len(data) < 4 {
			return 0
		}
		return int(data[2])<<8 | int(data[3])
	}
	return int(data[1])
}

// TLVFindNDEF walks a TLV block and returns the value of the first NDEF
// Message TLV. Null TLVs are skipped; unknown TLVs are stepped over.
func TLVFindNDEF(data []byte) ([]byte, bool) {
	offset := 0

	for offset < len(data) {
		tlvType := data[offset]

		switch tlvType {
		case TLVNull:
			offset++
			continue

		case TLVTerminator:
			return nil, false

		case TLVNDEF:
			fvs, ok := tlvValueOffset(data[offset:])
			if !ok {
				return nil, false
			}
			length := tlvLength(data[offset:])
			valueStart := offset + fvs
			if valueStart+length > len(data) {
				return nil, false
			}
			return data[valueStart : valueStart+length], true

		default:
			fvs, ok := tlvValueOffset(data[offset:])
			if !ok {
				return nil, false
			}
			offset += fvs + tlvLength(data[offset:])
		}
	}

	return nil, false
}

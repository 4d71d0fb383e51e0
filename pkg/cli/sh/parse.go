package sh

import "strconv"

// ParseUint parses decimal or 0x prefixed hex.
func ParseUint(s string, bits int) (uint64, error) {
	return strconv.ParseUint(s, 0, bits)
}

// ParseBytes parses hex bytes, with or without 0x prefix.
func ParseBytes(args []string) ([]byte, error) {
	data := make([]byte, 0, len(args))
	for _, arg := range args {
		if len(arg) > 2 && (arg[:2] == "0x" || arg[:2] == "0X") {
			arg = arg[2:]
		}
		v, err := strconv.ParseUint(arg, 16, 8)
		if err != nil {
			return nil, err
		}
		data = append(data, byte(v))
	}
	return data, nil
}

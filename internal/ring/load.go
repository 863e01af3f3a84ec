package ring

import (
	"strconv"
	"strings"
)

// LoadBytes converts a Load column value such as "15.3 GB" to bytes.
// The second return is false when the column could not be interpreted
// (missing, "?", or an unrecognized unit).
func LoadBytes(load string) (int64, bool) {
	fields := strings.Fields(load)
	if len(fields) != 2 {
		return 0, false
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || value < 0 {
		return 0, false
	}

	var scale float64
	switch strings.ToUpper(fields[1]) {
	case "KB", "KIB":
		scale = 1 << 10
	case "MB", "MIB":
		scale = 1 << 20
	case "GB", "GIB":
		scale = 1 << 30
	case "TB", "TIB":
		scale = 1 << 40
	case "BYTES":
		scale = 1
	default:
		return 0, false
	}
	return int64(value * scale), true
}

// OwnsPercent converts an Owns column value such as "33.33%" to its
// numeric percentage.
func OwnsPercent(owns string) (float64, bool) {
	s := strings.TrimSpace(owns)
	if !strings.HasSuffix(s, "%") {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var sizeRe = regexp.MustCompile(`^(0|[1-9][0-9]*) ?([KMGTPE]i?)?B?$`)

var sizeUnits = map[string]int64{
	"":   1,
	"K":  1000,
	"M":  1000 * 1000,
	"G":  1000 * 1000 * 1000,
	"T":  1000 * 1000 * 1000 * 1000,
	"P":  1000 * 1000 * 1000 * 1000 * 1000,
	"E":  1000 * 1000 * 1000 * 1000 * 1000 * 1000,
	"Ki": 1 << 10,
	"Mi": 1 << 20,
	"Gi": 1 << 30,
	"Ti": 1 << 40,
	"Pi": 1 << 50,
	"Ei": 1 << 60,
}

// Parses a human readable byte size, e.g. "64MiB" or "1 GB".
func ParseSize(size string) (int64, error) {
	size = strings.TrimSpace(size)

	parts := sizeRe.FindStringSubmatch(size)
	if parts == nil {
		return 0, fmt.Errorf("%w: invalid size: %q", ErrParse, size)
	}

	value, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid size: %q", ErrParse, size)
	}

	unit := sizeUnits[parts[2]]
	if value > math.MaxInt64/unit {
		return 0, fmt.Errorf("%w: size out of range: %q", ErrParse, size)
	}

	return value * unit, nil
}

func HumanByteSize(byteSize int64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

	index := 0
	size := float64(byteSize)
	for size >= 1024 && index < len(units)-1 {
		size /= 1024
		index++
	}

	switch index {
	case 0, 1:
		return fmt.Sprintf("%.0f%s", size, units[index])
	case 2:
		return fmt.Sprintf("%.1f%s", size, units[index])
	default:
		return fmt.Sprintf("%.2f%s", size, units[index])
	}
}

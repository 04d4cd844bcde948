package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseBytes converts an Incus size string ("512MB", "2GiB", "1073741824")
// into a byte count. SI suffixes are powers of 1000 and IEC suffixes powers
// of 1024. Empty values, percentages and unparsable input report ok=false.
func ParseBytes(value string) (int64, bool) {
	v := strings.TrimSpace(value)
	if v == "" || strings.HasSuffix(v, "%") {
		return 0, false
	}

	n, err := humanize.ParseBytes(v)
	if err != nil || n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

// ParseCPUCount converts an Incus limits.cpu value into a vCPU count.
// It accepts a plain count ("2"), a pinned range ("0-3") or a pinned list ("1,3,5"),
// and combinations of both ("0-1,4").
func ParseCPUCount(value string) (int, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false
	}

	if !strings.ContainsAny(v, ",-") {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start < 0 {
			return 0, false
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start {
				return 0, false
			}
		}
		for cpu := start; cpu <= end; cpu++ {
			seen[cpu] = struct{}{}
		}
	}
	return len(seen), true
}

// FormatBytes renders a byte count with the unit giving the smallest exact
// quantity, IEC or SI ("1GiB", "512MB", "1536B").
func FormatBytes(n int64) string {
	if n == 0 {
		return "0B"
	}
	best, bestSuffix := n, "B"
	try := func(unit int64, suffix string) {
		if n%unit == 0 && n/unit < best {
			best, bestSuffix = n/unit, suffix
		}
	}
	for i, suffix := range []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"} {
		try(int64(1)<<(10*(i+1)), suffix)
	}
	unit := int64(1)
	for _, suffix := range []string{"kB", "MB", "GB", "TB", "PB", "EB"} {
		unit *= 1000
		try(unit, suffix)
	}
	return strconv.FormatInt(best, 10) + bestSuffix
}

package utils

import (
	"strconv"
)

// Unit represents the unit used for output
type Unit int

const (
	// UnitPage outputs values in pages
	UnitPage Unit = iota
	// UnitKB outputs values in KB
	UnitKB
	// UnitMB outputs values in MB
	UnitMB
	// UnitGB outputs values in GB
	UnitGB

	kebibyte = float64(1 << 10)
	mebibyte = float64(1 << 20)
	gebibyte = float64(1 << 30)
)

// UnitName returns the suffix of a unit, used in headers
func UnitName(u Unit) string {
	switch u {
	case UnitPage:
		return "Pgs"
	case UnitKB:
		return "KB"
	case UnitMB:
		return "MB"
	case UnitGB:
		return "GB"
	}
	return "?"
}

// FormatPageValue converts a page count to unit
func FormatPageValue(value int, unit Unit, pageSize int) (valueStr string) {
	switch unit {
	case UnitPage:
		valueStr = strconv.FormatInt(int64(value), 10)
	case UnitKB:
		valueStr = strconv.FormatFloat(float64(value*pageSize)/kebibyte, 'f', -1, 64)
	case UnitMB:
		valueStr = strconv.FormatFloat(float64(value*pageSize)/mebibyte, 'f', 2, 64)
	case UnitGB:
		valueStr = strconv.FormatFloat(float64(value*pageSize)/gebibyte, 'f', 2, 64)
	}
	return valueStr
}

// FormatPct returns part/total as a percentage with 2 decimals
func FormatPct(part int, total int) string {
	if part > 0 && total > 0 {
		value := 100 * float64(part) / float64(total)
		return strconv.FormatFloat(value, 'f', 2, 64)
	}
	return "0"
}

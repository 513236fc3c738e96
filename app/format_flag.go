package app

import (
	"flag"
	"fmt"
	"strings"

	"github.com/bonnefoa/mmap_readahead/utils"
)

// OutputFormat is the format of the comparison table
type OutputFormat int

const (
	// FormatColumn outputs aligned columns
	FormatColumn OutputFormat = iota
	// FormatCSV outputs csv
	FormatCSV
	// FormatJSON outputs a json document
	FormatJSON
)

var (
	formatMap = map[string]OutputFormat{
		"column": FormatColumn,
		"csv":    FormatCSV,
		"json":   FormatJSON,
	}

	formatUnitMap = map[string]utils.Unit{
		"page": utils.UnitPage,
		"kb":   utils.UnitKB,
		"mb":   utils.UnitMB,
		"gb":   utils.UnitGB,
	}

	outputOptions OutputOptions
	formatFlag    string
	unitFlag      string
)

func init() {
	flag.StringVar(&formatFlag, "format", "column", "Output format. Can be column, csv or json")
	flag.StringVar(&unitFlag, "unit", "page", "Unit to use for resident pages. Can be page, kb, mb or gb")
	flag.BoolVar(&outputOptions.NoHeader, "no_header", false, "Don't print the header line")
	flag.StringVar(&outputOptions.Output, "output", "", "Write the comparison to this file instead of stdout. A .zst, .gz or .lz4 extension compresses it")
}

// OutputOptions controls how the comparison is written
type OutputOptions struct {
	Format   OutputFormat
	Unit     utils.Unit
	NoHeader bool
	Output   string
}

func parseFormat(s string) (OutputFormat, error) {
	res, ok := formatMap[strings.ToLower(s)]
	if !ok {
		return res, fmt.Errorf("unknown format: %v", s)
	}
	return res, nil
}

func parseUnitFlag(s string) (utils.Unit, error) {
	res, ok := formatUnitMap[strings.ToLower(s)]
	if !ok {
		return res, fmt.Errorf("unknown unit: %v", s)
	}
	return res, nil
}

// ParseOutputOptions parses the output flags
func ParseOutputOptions() (OutputOptions, error) {
	var err error
	outputOptions.Format, err = parseFormat(formatFlag)
	if err != nil {
		return outputOptions, err
	}
	outputOptions.Unit, err = parseUnitFlag(unitFlag)
	if err != nil {
		return outputOptions, err
	}
	return outputOptions, nil
}

package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bonnefoa/mmap_readahead/experiment"
	"github.com/bonnefoa/mmap_readahead/pagecache"
	"github.com/bonnefoa/mmap_readahead/relation"
	"github.com/bonnefoa/mmap_readahead/utils"
)

func (r *Readahead) getHeader() []string {
	unit := utils.UnitName(r.OutputOptions.Unit)
	return []string{"Target", "Pair", "Index", "Offset",
		"ResidentA (" + unit + ")", "ResidentB (" + unit + ")",
		"%CachedA", "%CachedB"}
}

func (r *Readahead) rowToStringArray(target string, pair int, pages int, row experiment.Row) []string {
	unit := r.OutputOptions.Unit
	return []string{target, strconv.Itoa(pair), strconv.Itoa(row.Index), strconv.Itoa(row.Offset),
		utils.FormatPageValue(row.ResidentA, unit, r.pageSize),
		utils.FormatPageValue(row.ResidentB, unit, r.pageSize),
		utils.FormatPct(row.ResidentA, pages),
		utils.FormatPct(row.ResidentB, pages)}
}

func faultsToString(res experiment.TrialResult) string {
	if res.Faults == nil {
		return "n/a"
	}
	if res.FaultsDelta == nil {
		return fmt.Sprintf("%d/%d", res.Faults.Minor, res.Faults.Major)
	}
	return fmt.Sprintf("+%d/+%d", res.FaultsDelta.Minor, res.FaultsDelta.Major)
}

func flagsToString(flags map[string]int) string {
	var parts []string
	for _, fc := range pagecache.SortedFlagCounts(flags) {
		parts = append(parts, fmt.Sprintf("%s=%d", fc.Name, fc.Count))
	}
	return strings.Join(parts, ",")
}

func (r *Readahead) trialToStringArray(target relation.Target, pair int, trial string, res experiment.TrialResult) []string {
	unit := r.OutputOptions.Unit
	return []string{target.Name, relation.KindToString(target.Kind), strconv.Itoa(pair), trial, strconv.FormatBool(res.Config.Advise),
		utils.FormatPageValue(res.Before, unit, r.pageSize),
		utils.FormatPageValue(res.After, unit, r.pageSize),
		utils.FormatPageValue(int(res.NewlyResident), unit, r.pageSize),
		strconv.Itoa(res.Scan.Units), strconv.Itoa(len(res.Series)),
		res.Scan.UsefulTime().String(), res.Scan.Overhead().String(),
		res.AdviseCost.String(), faultsToString(res), flagsToString(res.PageFlags)}
}

// outputSummary prints one line per trial
func (r *Readahead) outputSummary(w io.Writer, reports []TargetReport) error {
	tw := tabwriter.NewWriter(w, 10, 0, 1, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{"Target", "Kind", "Pair", "Trial", "Advise", "Before", "After", "NewlyResident",
		"Units", "Samples", "ScanTime", "SampleOverhead", "AdviseCost", "Faults(min/maj)", "PageFlags"}, "\t"))
	for _, report := range reports {
		for i, pair := range report.Pairs {
			fmt.Fprintln(tw, strings.Join(r.trialToStringArray(report.Target, i, "A", pair.A), "\t"))
			fmt.Fprintln(tw, strings.Join(r.trialToStringArray(report.Target, i, "B", pair.B), "\t"))
		}
	}
	return tw.Flush()
}

func (r *Readahead) outputResults(w io.Writer, reports []TargetReport) error {
	var values [][]string

	header := r.getHeader()
	if !r.OutputOptions.NoHeader && r.OutputOptions.Format != FormatJSON {
		values = append(values, header)
	}
	for _, report := range reports {
		for i, pair := range report.Pairs {
			for _, row := range pair.Comparison.Rows {
				values = append(values, r.rowToStringArray(report.Name, i, pair.A.Pages, row))
			}
		}
	}

	switch r.OutputOptions.Format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		cw.WriteAll(values)
		return cw.Error()
	case FormatJSON:
		m := make([]map[string]string, 0, len(values))
		for _, line := range values {
			o := make(map[string]string, len(header))
			for i, k := range header {
				o[k] = line[i]
			}
			m = append(m, o)
		}
		res, err := json.Marshal(m)
		if err != nil {
			return err
		}
		_, err = w.Write(res)
		return err
	case FormatColumn:
		err := r.outputSummary(w, reports)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nResidency comparison\n")
		tw := tabwriter.NewWriter(w, 10, 0, 1, ' ', 0)
		for _, v := range values {
			fmt.Fprintln(tw, strings.Join(v, "\t"))
		}
		return tw.Flush()
	}
	return nil
}

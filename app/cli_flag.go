package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bonnefoa/mmap_readahead/experiment"
	"github.com/bonnefoa/mmap_readahead/mapping"
	"github.com/bonnefoa/mmap_readahead/scan"
)

var (
	cliArgs CliArgs

	filesFlag       string
	relationsFlag   string
	strategyFlag    string
	delimiterFlag   string
	adviceFlag      string
	compositionFlag string
)

// ErrUsage is returned for invalid command line arguments
var ErrUsage = errors.New("invalid arguments")

// CliArgs holds the parsed command line
type CliArgs struct {
	Files         []string
	Relations     []string
	PgData        string
	ConnectString string
	Seed          uint64
	PageFlags     bool
	Cpuprofile    string

	Experiment    experiment.Config
	OutputOptions OutputOptions
}

func init() {
	flag.StringVar(&filesFlag, "files", "", "Files to scan (separated with commas). Positional arguments are also accepted")
	flag.StringVar(&relationsFlag, "relations", "", "PostgreSQL relations to scan (separated with commas), resolved with connect_str")
	flag.StringVar(&cliArgs.PgData, "pgData", "", "Location of pgdata, uses PGDATA env var if not defined")
	flag.StringVar(&cliArgs.ConnectString, "connect_str", "", "Connection string to PostgreSQL")
	flag.IntVar(&cliArgs.Experiment.Trial.BlockSize, "block_size", experiment.DefaultBlockSize, "Bytes mapped and scanned per trial")
	flag.IntVar(&cliArgs.Experiment.Trial.SampleInterval, "interval", 0, "Units between residency samples. 0 uses the strategy default (100 lines, 500 chunks)")
	flag.StringVar(&strategyFlag, "strategy", "line", "Scan strategy. Can be line or block")
	flag.StringVar(&delimiterFlag, "delimiter", `\n`, "Record delimiter for the line strategy, a single byte")
	flag.StringVar(&adviceFlag, "advice", "willneed", "Advice used by advised trials. Can be willneed, sequential or random")
	flag.StringVar(&compositionFlag, "composition", "advised_vs_plain", "Advise flags of each trial pair. Can be advised_vs_plain, advised_twice or plain_twice")
	flag.IntVar(&cliArgs.Experiment.Trials, "trials", 2, "Number of trials, an even number of at least 2")
	flag.Uint64Var(&cliArgs.Seed, "seed", 1, "Seed of the block strategy chunk generator")
	flag.BoolVar(&cliArgs.PageFlags, "page_flags", false, "Report kernel page flags of resident pages after each scan. Needs CAP_SYS_ADMIN")
	flag.StringVar(&cliArgs.Cpuprofile, "cpuprofile", "", "Write cpu profile to file")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseDelimiter(s string) (byte, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	unquoted, err := strconv.Unquote(`"` + s + `"`)
	if err != nil || len(unquoted) != 1 {
		return 0, fmt.Errorf("delimiter must be a single byte: %q", s)
	}
	return unquoted[0], nil
}

// ParseCliArgs parses flags and validates them
func ParseCliArgs() (CliArgs, error) {
	flag.Parse()
	err := SetLogLevel()
	if err != nil {
		return cliArgs, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	cliArgs.OutputOptions, err = ParseOutputOptions()
	if err != nil {
		return cliArgs, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	trial := &cliArgs.Experiment.Trial
	trial.Strategy, err = scan.ParseKind(strategyFlag)
	if err != nil {
		return cliArgs, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	trial.Delimiter, err = parseDelimiter(delimiterFlag)
	if err != nil {
		return cliArgs, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	trial.Advice, err = mapping.ParseAdvice(adviceFlag)
	if err != nil {
		return cliArgs, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	cliArgs.Experiment.Composition, err = experiment.ParseComposition(compositionFlag)
	if err != nil {
		return cliArgs, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	err = cliArgs.Experiment.Validate()
	if err != nil {
		return cliArgs, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if trial.BlockSize <= 0 {
		return cliArgs, fmt.Errorf("%w: block_size must be positive", ErrUsage)
	}

	cliArgs.Files = append(splitList(filesFlag), flag.Args()...)
	cliArgs.Relations = splitList(relationsFlag)
	if len(cliArgs.Relations) > 0 && cliArgs.PgData == "" {
		// Fallback to PGDATA env var
		var found bool
		cliArgs.PgData, found = os.LookupEnv("PGDATA")
		if !found {
			return cliArgs, fmt.Errorf("%w: pgdata is mandatory with relations", ErrUsage)
		}
	}
	if len(cliArgs.Files) == 0 && len(cliArgs.Relations) == 0 {
		return cliArgs, fmt.Errorf("%w: no file or relation to scan", ErrUsage)
	}

	return cliArgs, nil
}

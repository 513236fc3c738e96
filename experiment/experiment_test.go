package experiment

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bonnefoa/mmap_readahead/mapping"
	"github.com/bonnefoa/mmap_readahead/memory"
	"github.com/bonnefoa/mmap_readahead/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	drops int
	err   error
}

func (f *fakeCache) DropAll() error {
	f.drops++
	return f.err
}

type fakeStats struct {
	faults memory.Faults
	err    error
}

func (f *fakeStats) Read(pid int) (memory.Faults, error) {
	f.faults.Minor += 10
	f.faults.Major++
	return f.faults, f.err
}

// writeRecords writes count records of size bytes, delimiter included
func writeRecords(t *testing.T, count int, size int) string {
	t.Helper()
	record := append(bytes.Repeat([]byte{'x'}, size-1), '\n')
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, bytes.Repeat(record, count), 0600))
	return path
}

func newRunner() (*Runner, *fakeCache, *fakeStats) {
	cache := &fakeCache{err: errors.New("permission denied")}
	stats := &fakeStats{}
	return &Runner{Cache: cache, Stats: stats}, cache, stats
}

func TestRun_LineTrial(t *testing.T) {
	path := writeRecords(t, 10240, 64)
	runner, cache, _ := newRunner()
	ctx := NewContext(1)

	res, err := runner.Run(ctx, TrialConfig{
		Path:      path,
		BlockSize: DefaultBlockSize,
		Advise:    true,
		Strategy:  scan.KindLine,
		Delimiter: '\n',
	})
	require.NoError(t, err)

	// A failing cache drop is not fatal
	assert.Equal(t, 1, cache.drops)
	assert.Equal(t, scan.DefaultLineInterval, res.Interval)
	assert.Equal(t, 10240, res.Scan.Units)
	assert.Len(t, res.Series, 103)
	assert.Equal(t, res.Pages, res.After)
	for _, p := range res.Series {
		assert.GreaterOrEqual(t, p.Resident, 0)
		assert.LessOrEqual(t, p.Resident, res.Pages)
	}
	require.NotNil(t, res.Faults)
	assert.Nil(t, res.FaultsDelta)
}

func TestRun_FaultDelta(t *testing.T) {
	path := writeRecords(t, 128, 64)
	runner, _, _ := newRunner()
	ctx := NewContext(1)
	cfg := TrialConfig{Path: path, BlockSize: 128 * 64, Strategy: scan.KindLine, Delimiter: '\n'}

	_, err := runner.Run(ctx, cfg)
	require.NoError(t, err)
	res, err := runner.Run(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.FaultsDelta)
	assert.Equal(t, memory.Faults{Minor: 10, Major: 1}, *res.FaultsDelta)

	ctx.Reset()
	res, err = runner.Run(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, res.FaultsDelta)
}

func TestRun_FaultQueryFailure(t *testing.T) {
	path := writeRecords(t, 128, 64)
	runner, _, stats := newRunner()
	stats.err = errors.New("no procfs")

	res, err := runner.Run(NewContext(1), TrialConfig{Path: path, BlockSize: 128 * 64, Strategy: scan.KindLine, Delimiter: '\n'})
	require.NoError(t, err)
	assert.Nil(t, res.Faults)
}

func TestRun_OpenError(t *testing.T) {
	runner, cache, _ := newRunner()
	_, err := runner.Run(NewContext(1), TrialConfig{
		Path:     filepath.Join(t.TempDir(), "missing.csv"),
		Strategy: scan.KindLine,
	})
	assert.ErrorIs(t, err, mapping.ErrOpen)
	assert.Equal(t, 1, cache.drops)
}

func TestRun_ReadError(t *testing.T) {
	// A single record larger than the line scratch buffer
	path := writeRecords(t, 1, 64<<10)
	runner, _, stats := newRunner()

	_, err := runner.Run(NewContext(1), TrialConfig{Path: path, BlockSize: 64 << 10, Strategy: scan.KindLine, Delimiter: '\n'})
	assert.ErrorIs(t, err, scan.ErrRead)
	assert.ErrorIs(t, err, scan.ErrRecordTooLarge)
	assert.Zero(t, stats.faults.Minor)
}

func TestRun_AdvisedAndPlainSeriesAlign(t *testing.T) {
	path := writeRecords(t, 10240, 64)
	runner, _, _ := newRunner()
	ctx := NewContext(1)
	cfg := TrialConfig{Path: path, BlockSize: DefaultBlockSize, Strategy: scan.KindLine, Delimiter: '\n'}

	cfg.Advise = true
	advised, err := runner.Run(ctx, cfg)
	require.NoError(t, err)
	cfg.Advise = false
	plain, err := runner.Run(ctx, cfg)
	require.NoError(t, err)

	assert.Equal(t, len(advised.Series), len(plain.Series))
	c := Compare(advised.Series, plain.Series, advised.Interval)
	assert.False(t, c.Mismatch)
	assert.Len(t, c.Rows, len(advised.Series))
}

func TestDriver_BlockReplay(t *testing.T) {
	path := writeRecords(t, 10240, 64)
	runner, cache, _ := newRunner()
	ctx := NewContext(42)

	report, err := (&Driver{Runner: runner}).Run(ctx, Config{
		Trial: TrialConfig{
			Path:           path,
			BlockSize:      DefaultBlockSize,
			SampleInterval: 10,
			Strategy:       scan.KindBlock,
		},
		Trials:      4,
		Composition: AdvisedVsPlain,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, cache.drops)
	require.Len(t, report.Pairs, 2)
	assert.True(t, ctx.Chunks.Populated())
	assert.Equal(t, DefaultBlockSize, ctx.Chunks.Total())
	for _, pair := range report.Pairs {
		assert.True(t, pair.A.Config.Advise)
		assert.False(t, pair.B.Config.Advise)
		assert.False(t, pair.Comparison.Mismatch)
		assert.Equal(t, pair.A.Scan.Units, pair.B.Scan.Units)
		assert.Equal(t, len(ctx.Chunks.Lengths()), pair.A.Scan.Units)
		for i, row := range pair.Comparison.Rows {
			assert.Equal(t, i*10, row.Offset)
			assert.Equal(t, pair.A.Series[i].Units, pair.B.Series[i].Units)
		}
	}
	assert.Equal(t, report.Pairs[1].A.Series, ctx.SeriesA)
	assert.Equal(t, report.Pairs[1].B.Series, ctx.SeriesB)

	ctx.Reset()
	assert.False(t, ctx.Chunks.Populated())
	assert.Nil(t, ctx.SeriesA)
}

func TestRun_BlockDefaults(t *testing.T) {
	path := writeRecords(t, 10240, 64)
	runner, _, _ := newRunner()

	res, err := runner.Run(NewContext(1), TrialConfig{Path: path, BlockSize: DefaultBlockSize, Strategy: scan.KindBlock})
	require.NoError(t, err)
	assert.Equal(t, scan.DefaultBlockInterval, res.Interval)
	assert.Greater(t, len(res.Series), 1)
}

func TestDriver_InvalidTrials(t *testing.T) {
	runner, _, _ := newRunner()
	for _, trials := range []int{0, 1, 3} {
		_, err := (&Driver{Runner: runner}).Run(NewContext(1), Config{Trials: trials})
		assert.Error(t, err, trials)
	}
}

func TestDriver_StopsOnError(t *testing.T) {
	runner, cache, _ := newRunner()
	_, err := (&Driver{Runner: runner}).Run(NewContext(1), Config{
		Trial:  TrialConfig{Path: filepath.Join(t.TempDir(), "missing.csv")},
		Trials: 4,
	})
	assert.ErrorIs(t, err, mapping.ErrOpen)
	assert.Equal(t, 1, cache.drops)
}

func TestComposition(t *testing.T) {
	cases := map[string][2]bool{
		"advised_vs_plain": {true, false},
		"advised_twice":    {true, true},
		"PLAIN_TWICE":      {false, false},
	}
	for name, expected := range cases {
		c, err := ParseComposition(name)
		require.NoError(t, err)
		a, b := c.Advise()
		assert.Equal(t, expected, [2]bool{a, b}, name)
	}
	_, err := ParseComposition("advised")
	assert.Error(t, err)
	assert.Equal(t, "advised_twice", AdvisedTwice.String())
}

func TestCompare_Truncates(t *testing.T) {
	a := TimeSeries{{100, 1}, {200, 2}, {300, 3}}
	b := TimeSeries{{100, 5}, {200, 6}}

	c := Compare(a, b, 100)
	assert.True(t, c.Mismatch)
	assert.Equal(t, 3, c.LengthA)
	assert.Equal(t, 2, c.LengthB)
	assert.Equal(t, []Row{
		{Index: 0, Offset: 0, ResidentA: 1, ResidentB: 5},
		{Index: 1, Offset: 100, ResidentA: 2, ResidentB: 6},
	}, c.Rows)

	c = Compare(nil, b, 100)
	assert.True(t, c.Mismatch)
	assert.Empty(t, c.Rows)
}

package tssdedup

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/umicount/cluster"
	"github.com/grailbio/umicount/encoding/bed12"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBED(t *testing.T, path string, lines ...string) {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(strings.Replace(line, " ", "\t", -1))
		b.WriteByte('\n')
	}
	require.NoError(t, ioutil.WriteFile(path, []byte(b.String()), 0600))
}

func readOutput(t *testing.T, path string) []string {
	var lines []string
	require.NoError(t, bed12.Scan(vcontext.Background(), path, func(rec *bed12.Record) error {
		lines = append(lines, rec.String())
		return nil
	}))
	return lines
}

var exactInput = []string{
	"chr1 100 200 BC:AAA;FP:1 0 + 100 100 0 1 100 0",
	"chr1 50 150 BC:CCC;FP:1 0 - 150 150 0 1 100 0",
	"chr1 100 180 BC:AAA;FP:1 0 + 100 100 0 1 80 0",
	"chr1 100 200 BC:GGG;FP:1 0 + 100 100 0 2 10,10 0,90",
	"chr1 90 150 BC:CCC;FP:1 0 - 150 150 0 1 60 0",
	"chr2 10 50 BC:AAA;FP:1 0 + 10 10 0 1 40 0",
}

var exactOutput = []string{
	"chr1\t100\t200\tBC:AAA;FP:1\t2\t+\t100\t200\t255,0,0\t1\t100\t0",
	"chr1\t100\t200\tBC:GGG;FP:1\t1\t+\t100\t110\t255,0,0\t2\t10,10\t0,90",
	"chr2\t10\t50\tBC:AAA;FP:1\t1\t+\t10\t50\t255,0,0\t1\t40\t0",
	"chr1\t50\t150\tBC:CCC;FP:1\t2\t-\t50\t150\t255,0,0\t1\t100\t0",
}

func TestRunExact(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	in := filepath.Join(tempDir, "in.bed")
	writeBED(t, in, exactInput...)
	for _, batch := range []int{0, 2} {
		opts := Opts{
			Mode:          ModeExact,
			Inputs:        []string{in},
			Output:        filepath.Join(tempDir, "out.bed.gz"),
			MetricsFile:   filepath.Join(tempDir, "metrics.tsv"),
			TmpDir:        tempDir,
			SortBatchSize: batch,
			Parallelism:   3,
			QueueLength:   1,
		}
		m, err := Run(ctx, &opts)
		require.NoError(t, err)
		expect.EQ(t, readOutput(t, opts.Output), exactOutput)
		expect.EQ(t, m.RecordsRead, 6)
		expect.EQ(t, m.Clusters, 4)
		expect.EQ(t, m.DuplicatesCollapsed(), 2)

		data, err := ioutil.ReadFile(opts.MetricsFile)
		require.NoError(t, err)
		lines := strings.Split(string(data), "\n")
		require.True(t, len(lines) >= 3)
		expect.EQ(t, lines[1], metricsHeader)
		expect.True(t, strings.HasPrefix(lines[2], "6\t0\t0\t4\t2\t"), lines[2])
	}
}

// TestRunChecksum checks that the checksum depends on the output set, not on
// the input order.
func TestRunChecksum(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	var sums []uint64
	for i, order := range [][]int{{0, 1, 2, 3, 4, 5}, {5, 4, 3, 2, 1, 0}} {
		var lines []string
		for _, j := range order {
			lines = append(lines, exactInput[j])
		}
		dir := filepath.Join(tempDir, string(rune('a'+i)))
		require.NoError(t, os.MkdirAll(dir, 0700))
		writeBED(t, filepath.Join(dir, "in.bed"), lines...)
		m, err := Run(ctx, &Opts{
			Mode:     ModeExact,
			InputDir: dir,
			Output:   filepath.Join(tempDir, "out.bed"),
		})
		require.NoError(t, err)
		sums = append(sums, m.Checksum)
	}
	expect.EQ(t, sums[0], sums[1])
	expect.True(t, sums[0] != 0)
}

func TestRunProximity(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	in := filepath.Join(tempDir, "in.bed")
	writeBED(t, in,
		"chr1 100 150 r1 0 + 0 0 0 1 50 0",
		"chr1 110 150 r2 0 + 0 0 0 1 40 0",
		"chr1 200 260 r3 0 + 0 0 0 1 60 0",
		"chr2 100 150 r4 0 + 0 0 0 1 50 0",
	)
	out := filepath.Join(tempDir, "out.bed")
	m, err := Run(ctx, &Opts{
		Mode:        ModeProximity,
		Inputs:      []string{in},
		Output:      out,
		MaxDistance: -1,
	})
	require.NoError(t, err)
	expect.EQ(t, m.Clusters, 3)
	expect.EQ(t, readOutput(t, out), []string{
		"chr1\t100\t150\tchr1:100:150:+\t2\t+\t100\t150\t255,0,0\t1\t50\t0",
		"chr1\t200\t260\tchr1:200:260:+\t1\t+\t200\t260\t255,0,0\t1\t60\t0",
		"chr2\t100\t150\tchr2:100:150:+\t1\t+\t100\t150\t255,0,0\t1\t50\t0",
	})

	// A distance of 100 chains r1..r3.
	m, err = Run(ctx, &Opts{
		Mode:        ModeProximity,
		Inputs:      []string{in},
		Output:      out,
		MaxDistance: 100,
	})
	require.NoError(t, err)
	expect.EQ(t, m.Clusters, 2)
}

func TestRunProximityUnsorted(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	in := filepath.Join(tempDir, "in.bed")
	writeBED(t, in,
		"chr1 200 260 r3 0 + 0 0 0 1 60 0",
		"chr1 100 150 r1 0 + 0 0 0 1 50 0",
	)
	opts := Opts{
		Mode:        ModeProximity,
		Inputs:      []string{in},
		Output:      filepath.Join(tempDir, "out.bed"),
		MaxDistance: 20,
	}
	_, err := Run(ctx, &opts)
	require.Error(t, err)
	_, ok := err.(*cluster.OrderingViolationError)
	expect.True(t, ok, "%v", err)

	opts.Sort = true
	m, err := Run(ctx, &opts)
	require.NoError(t, err)
	expect.EQ(t, m.Clusters, 2)
	expect.EQ(t, readOutput(t, opts.Output)[0], "chr1\t100\t150\tchr1:100:150:+\t1\t+\t100\t150\t255,0,0\t1\t50\t0")
}

func TestRunTargetsAndBarcodes(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	in := filepath.Join(tempDir, "in.bed")
	writeBED(t, in,
		"chr1 100 200 BC:AAA;FP:1 0 + 0 0 0 1 100 0",
		"chr1 100 200 BC:AAT;FP:1 0 + 0 0 0 1 100 0",
		"chr1 100 200 BC:AGG;FP:1 0 + 0 0 0 1 100 0",
		"chr1 300 400 BC:AAA;FP:1 0 + 0 0 0 1 100 0",
		"chr1 300 400 BC:AAA;FP:1 0 - 0 0 0 1 100 0",
		"chr2 100 200 BC:AAA;FP:1 0 + 0 0 0 1 100 0",
	)
	targets := filepath.Join(tempDir, "targets.bed")
	writeBED(t, targets, "chr1 0 350", "chr2 0 50")
	barcodes := filepath.Join(tempDir, "barcodes.txt")
	require.NoError(t, ioutil.WriteFile(barcodes, []byte("AAA\nCCC\n"), 0600))

	out := filepath.Join(tempDir, "out.bed")
	m, err := Run(ctx, &Opts{
		Mode:            ModeExact,
		Inputs:          []string{in},
		Output:          out,
		TargetsBED:      targets,
		Regions:         []string{"chr1", "chr2"},
		BarcodeFile:     barcodes,
		BarcodeMaxEdits: 1,
	})
	require.NoError(t, err)
	// The minus-strand read has TSS base 399 and chr2 is outside the targets.
	expect.EQ(t, m.RecordsFiltered, 2)
	expect.EQ(t, m.BarcodesCorrected, 1)
	expect.EQ(t, readOutput(t, out), []string{
		"chr1\t100\t200\tBC:AAA;FP:1\t2\t+\t100\t200\t255,0,0\t1\t100\t0",
		"chr1\t100\t200\tBC:AGG;FP:1\t1\t+\t100\t200\t255,0,0\t1\t100\t0",
		"chr1\t300\t400\tBC:AAA;FP:1\t1\t+\t300\t400\t255,0,0\t1\t100\t0",
	})
}

func TestRunErrors(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	_, err := Run(ctx, &Opts{})
	assert.Error(t, err)

	in := filepath.Join(tempDir, "in.bed")
	writeBED(t, in,
		"chr1 100 200 BC:AAA;FP:1 0 + 0 0 0 1 100 0",
		"chr1 100 200 BC:AAA 0 + 0 0 0 1 100 0",
	)
	_, err = Run(ctx, &Opts{Mode: ModeExact, Inputs: []string{in}, Output: filepath.Join(tempDir, "out.bed")})
	require.Error(t, err)
	_, ok := err.(*bed12.FormatError)
	expect.True(t, ok, "%v", err)

	_, err = Run(ctx, &Opts{Mode: ModeProximity, Inputs: []string{in}, BarcodeFile: in})
	assert.Error(t, err)
	_, err = Run(ctx, &Opts{Mode: ModeExact, Inputs: []string{filepath.Join(tempDir, "missing.bed")}})
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeExact, ModeProximity} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		expect.EQ(t, got, m)
	}
	_, err := ParseMode("fuzzy")
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}

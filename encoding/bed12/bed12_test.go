package bed12

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/umicount/interval"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleLine = "chrX\t100\t200\ttoto\t12\t+\t100\t110\t255,0,0\t2\t21,25\t0,75"

func TestParseLine(t *testing.T) {
	rec, err := ParseLine([]byte(exampleLine))
	require.NoError(t, err)
	expect.EQ(t, rec, Record{
		Chrom:       "chrX",
		Start:       100,
		End:         200,
		Name:        "toto",
		Score:       12,
		Strand:      Plus,
		ThickStart:  100,
		ThickEnd:    110,
		Color:       "255,0,0",
		BlockSizes:  []interval.PosType{21, 25},
		BlockStarts: []interval.PosType{0, 75},
	})
	expect.EQ(t, rec.TSS(), interval.PosType(100))
	expect.EQ(t, rec.TSSBase(), interval.PosType(100))

	blocks, err := AbsoluteBlocks(&rec)
	require.NoError(t, err)
	expect.EQ(t, blocks, []interval.Interval{{Start: 100, End: 121}, {Start: 175, End: 200}})

	rec.Strand = Minus
	expect.EQ(t, rec.TSS(), interval.PosType(200))
	expect.EQ(t, rec.TSSBase(), interval.PosType(199))
}

func TestParseLineTrailingComma(t *testing.T) {
	rec, err := ParseLine([]byte("chr1\t0\t50\tx\t0\t-\t0\t0\t0\t2\t10,10,\t0,40,\r"))
	require.NoError(t, err)
	expect.EQ(t, rec.BlockSizes, []interval.PosType{10, 10})
	expect.EQ(t, rec.BlockStarts, []interval.PosType{0, 40})
	expect.EQ(t, rec.Strand, Minus)
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{
		"chrX\t100\t200\ttoto\t12\t+\t100\t110\t255,0,0\t2\t21,25",
		"chrX\t100\t200\ttoto\t12\t+\t100\t110\t255,0,0\t2\t21,25\t0,75\textra",
		"chrX\tabc\t200\ttoto\t12\t+\t100\t110\t255,0,0\t2\t21,25\t0,75",
		"chrX\t100\t200\ttoto\tx\t+\t100\t110\t255,0,0\t2\t21,25\t0,75",
		"chrX\t100\t200\ttoto\t12\t*\t100\t110\t255,0,0\t2\t21,25\t0,75",
		"chrX\t100\t200\ttoto\t12\t+\t100\t110\t255,0,0\ttwo\t21,25\t0,75",
		"chrX\t100\t200\ttoto\t12\t+\t100\t110\t255,0,0\t2\t21,2x\t0,75",
		"chrX\t100\t200\ttoto\t12\t+\t100\t110\t255,0,0\t2\t21,25\t0",
		"chrX\t300\t200\ttoto\t12\t+\t100\t110\t255,0,0\t2\t21,25\t0,75",
	} {
		_, err := ParseLine([]byte(line))
		require.Error(t, err, line)
		_, ok := err.(*FormatError)
		assert.True(t, ok, "%q: %v", line, err)
	}
}

func TestTags(t *testing.T) {
	rec := Record{Name: "BC:ATGC;FP:0012;"}
	bc, err := Barcode(&rec)
	require.NoError(t, err)
	expect.EQ(t, bc, "ATGC")
	fp, err := Fingerprint(&rec)
	require.NoError(t, err)
	expect.EQ(t, fp, "0012")

	bc, fp, err = Identity(&rec)
	require.NoError(t, err)
	expect.EQ(t, IdentityName(bc, fp), "BC:ATGC;FP:0012")

	tags, err := ParseTags("XX:1;BC:A:B")
	require.NoError(t, err)
	v, ok := tags.Get(BarcodeTag)
	expect.True(t, ok)
	expect.EQ(t, v, "A:B")
	expect.EQ(t, tags.Set(BarcodeTag, "C").Set(FingerprintTag, "9").String(), "XX:1;BC:C;FP:9")

	for _, name := range []string{"toto", "BC:AAA", "FP:1", "BC:AAA;junk;FP:1", ":x"} {
		rec := Record{Name: name}
		_, _, err := Identity(&rec)
		require.Error(t, err, name)
		_, ok := err.(*FormatError)
		assert.True(t, ok, name)
	}
}

func TestAbsoluteBlocksErrors(t *testing.T) {
	_, err := AbsoluteBlocks(&Record{Chrom: "chr1", Start: 0, End: 10})
	assert.Error(t, err)
	_, err = AbsoluteBlocks(&Record{
		Chrom: "chr1", Start: 0, End: 10,
		BlockSizes:  []interval.PosType{5},
		BlockStarts: []interval.PosType{0, 5},
	})
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	rec, err := ParseLine([]byte("chr1\t0\t50\tBC:A;FP:1\t3\t-\t40\t50\t255,0,0\t2\t10,10,\t0,40,"))
	require.NoError(t, err)
	expect.EQ(t, rec.String(), "chr1\t0\t50\tBC:A;FP:1\t3\t-\t40\t50\t255,0,0\t2\t10,10\t0,40")

	var buf bytes.Buffer
	w := NewWriter(&buf)
	first, err := ParseLine([]byte(exampleLine))
	require.NoError(t, err)
	require.NoError(t, w.Write(&first))
	require.NoError(t, w.Write(&rec))
	require.NoError(t, w.Flush())
	expect.EQ(t, buf.String(), exampleLine+"\n"+rec.String()+"\n")
}

func TestScanner(t *testing.T) {
	input := "track name=reads\n# comment\n\n" + exampleLine + "\n" + exampleLine + "\r\nchrX\t1\n"
	sc := NewScanner(strings.NewReader(input), "reads.bed")
	var recs []Record
	var rec Record
	for sc.Scan(&rec) {
		recs = append(recs, rec)
	}
	expect.EQ(t, len(recs), 2)
	expect.EQ(t, recs[1].BlockStarts, []interval.PosType{0, 75})
	err := sc.Err()
	require.Error(t, err)
	fe, ok := err.(*FormatError)
	require.True(t, ok)
	expect.EQ(t, fe.Path, "reads.bed")
	expect.EQ(t, fe.Line, 6)
	expect.True(t, strings.HasPrefix(fe.Error(), "bed12: reads.bed:6: "))
	expect.False(t, sc.Scan(&rec))
}

func TestScanPath(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	plain := filepath.Join(tempDir, "reads.bed")
	require.NoError(t, ioutil.WriteFile(plain, []byte(exampleLine+"\n"), 0644))
	gzPath := filepath.Join(tempDir, "reads.bed.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(exampleLine + "\n" + exampleLine + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	for path, want := range map[string]int{plain: 1, gzPath: 2} {
		n := 0
		require.NoError(t, Scan(ctx, path, func(rec *Record) error {
			expect.EQ(t, rec.Chrom, "chrX")
			n++
			return nil
		}))
		expect.EQ(t, n, want, path)
	}
	assert.Error(t, Scan(ctx, filepath.Join(tempDir, "missing.bed"), func(*Record) error { return nil }))
}

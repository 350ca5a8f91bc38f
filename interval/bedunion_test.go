package interval

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBED = `track name=targets
chr1	100	200
chr1	150	250
chr1	250	260
chr1	300	300
chr1	400	500
# comment
chr2	10	20
chr3	5	5
`

func TestNewBEDUnion(t *testing.T) {
	u, err := NewBEDUnion(strings.NewReader(testBED), NewBEDOpts{})
	require.NoError(t, err)
	expect.EQ(t, u.nameMap, map[string][]PosType{
		"chr1": {100, 260, 400, 500},
		"chr2": {10, 20},
		"chr3": {},
	})
	expect.EQ(t, u.Chromosomes(), []string{"chr1", "chr2", "chr3"})
	expect.EQ(t, u.Intervals("chr1"), []Interval{{100, 260}, {400, 500}})

	// Sequential queries, then a backwards jump.
	for _, tt := range []struct {
		chr  string
		pos  PosType
		want bool
	}{
		{"chr1", 99, false},
		{"chr1", 100, true},
		{"chr1", 259, true},
		{"chr1", 260, false},
		{"chr1", 450, true},
		{"chr1", 500, false},
		{"chr1", 150, true},
		{"chr2", 15, true},
		{"chr3", 5, false},
		{"chrX", 5, false},
		{"chr1", 401, true},
	} {
		assert.Equal(t, tt.want, u.Contains(tt.chr, tt.pos), "%s:%d", tt.chr, tt.pos)
	}
}

func TestNewBEDUnionInvertOneBased(t *testing.T) {
	u, err := NewBEDUnion(strings.NewReader("chr1\t101\t200\nchr1\t301\t400\n"),
		NewBEDOpts{Invert: true, OneBasedInput: true})
	require.NoError(t, err)
	expect.EQ(t, u.nameMap["chr1"], []PosType{-1, 100, 200, 300, 400, math.MaxInt32})
	expect.True(t, u.Contains("chr1", 0))
	expect.False(t, u.Contains("chr1", 100))
	expect.True(t, u.Contains("chr1", 250))
}

func TestNewBEDUnionErrors(t *testing.T) {
	for _, bed := range []string{
		"chr1\t100\n",
		"chr1\tx\t200\n",
		"chr1\t200\t100\n",
		"chr1\t100\t200\nchr2\t1\t2\nchr1\t300\t400\n",
		"chr1\t100\t200\nchr1\t50\t60\n",
	} {
		_, err := NewBEDUnion(strings.NewReader(bed), NewBEDOpts{})
		assert.Error(t, err, bed)
	}
}

func TestNewBEDUnionFromPath(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "targets.bed.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testBED))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	u, err := NewBEDUnionFromPath(vcontext.Background(), path, NewBEDOpts{})
	require.NoError(t, err)
	expect.EQ(t, u.Intervals("chr2"), []Interval{{10, 20}})
}

func TestParseRegionString(t *testing.T) {
	tests := []struct {
		region  string
		chrName string
		start0  PosType
		end     PosType
	}{
		{"chr1:1-1000", "chr1", 0, 1000},
		{"chr1:1000", "chr1", 999, 1000},
		{"chr1", "chr1", 0, math.MaxInt32 - 1},
	}
	for _, tt := range tests {
		result, err := ParseRegionString(tt.region)
		expect.NoError(t, err)
		expect.EQ(t, result.ChrName, tt.chrName)
		expect.EQ(t, result.Start0, tt.start0)
		expect.EQ(t, result.End, tt.end)
	}
	for _, region := range []string{"", ":1-10", "chr1:0-10", "chr1:10-5", "chr1:a-b"} {
		_, err := ParseRegionString(region)
		assert.Error(t, err, region)
	}
}

func TestNewBEDUnionFromEntries(t *testing.T) {
	u, err := NewBEDUnionFromEntries([]Entry{
		{"chr2", 50, 60},
		{"chr1", 30, 40},
		{"chr1", 10, 30},
	}, NewBEDOpts{})
	require.NoError(t, err)
	expect.EQ(t, u.Intervals("chr1"), []Interval{{10, 40}})
	clone := u.Clone()
	expect.True(t, clone.Contains("chr2", 55))
	expect.False(t, clone.Contains("chr2", 60))
}

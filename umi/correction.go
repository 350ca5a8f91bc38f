package umi

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"strings"
	"sync"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/umicount/util"
)

var alphabetMap = map[byte]bool{
	'A': true,
	'C': true,
	'G': true,
	'T': true,
}

type snapCorrectorEntry struct {
	knownUMI string
	edits    int // -1 if not snappable
}

// SnapCorrector implements "snap" correction of UMIs.  A umi U is snappable if
// there is a known umi U1 that is closer to U than all other known umis, in
// terms of Levenshtein edit distance, and the distance is at most maxEdits.
//
// Corrections are computed on first use and memoized, so the cost is
// proportional to the number of distinct umis seen rather than to the size of
// the umi space.  A SnapCorrector is safe for concurrent use.
type SnapCorrector struct {
	knownUMIs []string
	known     map[string]bool
	maxEdits  int

	mu              sync.Mutex
	dist            util.Distance
	correctionTable map[string]snapCorrectorEntry
}

// NewSnapCorrector creates a new snap corrector.  The knownUMIs are a \n
// separated list of UMIs (identical to the file content of a list of UMIs,
// where each line contains a UMI).  Each UMI should consist of characters
// ACGT.  Blank lines are ignored.  maxEdits < 0 means that any unique closest
// umi is accepted.
func NewSnapCorrector(knownUMIs []byte, maxEdits int) (*SnapCorrector, error) {
	scanner := bufio.NewScanner(bytes.NewReader(knownUMIs))
	c := &SnapCorrector{
		known:           map[string]bool{},
		maxEdits:        maxEdits,
		correctionTable: map[string]snapCorrectorEntry{},
	}
	for scanner.Scan() {
		umi := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if umi == "" {
			continue
		}
		if err := validateUMI(umi); err != nil {
			return nil, err
		}
		if !c.known[umi] {
			c.known[umi] = true
			c.knownUMIs = append(c.knownUMIs, umi)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(c.knownUMIs) == 0 {
		return nil, fmt.Errorf("umi.NewSnapCorrector: no umis in input")
	}
	log.Debug.Printf("loaded %d known umis", len(c.knownUMIs))
	return c, nil
}

// NewSnapCorrectorFromPath reads the known umi list from path.
func NewSnapCorrectorFromPath(ctx context.Context, path string, maxEdits int) (c *SnapCorrector, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return nil, err
	}
	if c, err = NewSnapCorrector(data, maxEdits); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return c, nil
}

// KnownUMIs returns the deduplicated known umis, in input order.
func (c *SnapCorrector) KnownUMIs() []string {
	return c.knownUMIs
}

// CorrectUMI returns a corrected umi, number of edits to the corrected umi,
// and true if there is exactly one known UMI that is closest to the original
// umi with respect to Levenshtein edit distance.  Otherwise, return the
// original umi, -1, and false.  An umi that is already known is returned
// unchanged with 0 edits and false.
func (c *SnapCorrector) CorrectUMI(umi string) (correctedUMI string, edits int, corrected bool) {
	umi = strings.ToUpper(umi)
	if c.known[umi] {
		return umi, 0, false
	}
	c.mu.Lock()
	entry, ok := c.correctionTable[umi]
	if !ok {
		entry = c.snap(umi)
		c.correctionTable[umi] = entry
	}
	c.mu.Unlock()
	if entry.edits < 0 {
		return umi, -1, false
	}
	return entry.knownUMI, entry.edits, true
}

// snap finds the unique closest known umi.  REQUIRES: c.mu is held.
func (c *SnapCorrector) snap(umi string) snapCorrectorEntry {
	best, bestCost, ties := "", -1, 0
	for _, knownUMI := range c.knownUMIs {
		cost := c.dist.Levenshtein(umi, knownUMI)
		switch {
		case bestCost < 0 || cost < bestCost:
			best, bestCost, ties = knownUMI, cost, 1
		case cost == bestCost:
			ties++
		}
	}
	if ties != 1 || (c.maxEdits >= 0 && bestCost > c.maxEdits) {
		return snapCorrectorEntry{edits: -1}
	}
	log.Debug.Printf("%s snaps to %s with cost %d", umi, best, bestCost)
	return snapCorrectorEntry{best, bestCost}
}

func validateUMI(umi string) error {
	for i := 0; i < len(umi); i++ {
		if !alphabetMap[umi[i]] {
			return fmt.Errorf("umi.NewSnapCorrector: invalid base %c in umi %v", umi[i], umi)
		}
	}
	return nil
}

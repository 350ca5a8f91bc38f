package util

// Levenshtein computes the edit distance between s1 and s2: the minimum number
// of single-base insertions, deletions, and substitutions that transform s1
// into s2.  The strings may have different lengths.
func Levenshtein(s1, s2 string) int {
	var d Distance
	return d.Levenshtein(s1, s2)
}

// Distance computes edit distances, reusing its working row across calls.  A
// Distance must not be used concurrently.
type Distance struct {
	row []int
}

// Levenshtein is the same as the package-level Levenshtein, without
// allocating once the working row has grown to len(s2)+1.
func (d *Distance) Levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}
	if cap(d.row) < len(s2)+1 {
		d.row = make([]int, len(s2)+1)
	}
	row := d.row[:len(s2)+1]
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		// diag holds the (i-1, j-1) cell.
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(s2); j++ {
			up := row[j]
			cost := diag
			if s1[i-1] != s2[j-1] {
				cost = min3(diag, up, row[j-1]) + 1
			}
			row[j] = cost
			diag = up
		}
	}
	return row[len(s2)]
}

// Hamming returns the number of mismatching positions of two equal-length
// strings, or -1 if the lengths differ.
func Hamming(s1, s2 string) int {
	if len(s1) != len(s2) {
		return -1
	}
	n := 0
	for i := 0; i < len(s1); i++ {
		if s1[i] != s2[i] {
			n++
		}
	}
	return n
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

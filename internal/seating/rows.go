package seating

import "strings"

// RowLabel converts a zero-based index to an alphabetical row label like A, B, AA.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// RowIndex converts a row label like A or AA into its zero-based index.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// rowLess orders row labels by index, falling back to lexical order for
// labels that are not purely alphabetical.
func rowLess(a, b string) bool {
	ia, okA := RowIndex(a)
	ib, okB := RowIndex(b)
	if !okA || !okB {
		return a < b
	}
	return ia < ib
}

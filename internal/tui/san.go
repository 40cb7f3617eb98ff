package tui

import "strings"

// NormalizeSAN strips the decorations a learner may or may not type:
// leading move numbers ("9...Nf6"), surrounding whitespace, and trailing
// check/annotation marks. Castling is folded to the letter-O form.
func NormalizeSAN(s string) string {
	s = strings.TrimSpace(s)
	// A digit run counts as a move number only when a dot follows;
	// otherwise it would eat the zeros of "0-0".
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && s[i] == '.' {
		s = strings.TrimLeft(s[i:], ".")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "+#!?")
	if s == "0-0-0" {
		s = "O-O-O"
	} else if s == "0-0" {
		s = "O-O"
	}
	return s
}

// MatchSAN reports whether the typed move matches the expected one.
// Capitalization slips are forgiven unless the move starts with b/B,
// where case distinguishes a bishop move from a b-pawn capture.
func MatchSAN(input, want string) bool {
	input = NormalizeSAN(input)
	want = NormalizeSAN(want)
	if input == "" || want == "" {
		return input == want
	}
	if input == want {
		return true
	}
	if want[0] == 'b' || want[0] == 'B' || input[0] == 'b' || input[0] == 'B' {
		return false
	}
	return strings.EqualFold(input, want)
}

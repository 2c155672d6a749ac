// Package normalize collects the input-normalisation rules the clearance
// forms apply: the formatted student ID, word-capitalised names, GCash
// numbers and comma-grouped amounts. Submissions compare these normalised
// values against the stored profile with exact string equality, so the same
// rules must run at registration and at submission time.
package normalize

import "strings"

// StudentID strips non-digits and inserts a hyphen after the sixth digit,
// producing the NNNNNN-NNNN campus format. Fewer than seven digits are left
// unhyphenated.
func StudentID(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) <= 6 {
		return digits
	}
	return digits[:6] + "-" + digits[6:]
}

// Name upper-cases the first letter of every word, leaving the rest of each
// word untouched. Multiple spaces collapse the same way the form input does.
func Name(raw string) string {
	words := strings.Split(raw, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// GcashNumber keeps only digits and truncates to the 11-digit mobile format.
func GcashNumber(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) > 11 {
		digits = digits[:11]
	}
	return digits
}

// Amount strips non-digits and regroups with comma thousand separators.
func Amount(raw string) string {
	digits := strings.TrimLeft(digitsOnly(raw), "0")
	if digits == "" {
		return "0"
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

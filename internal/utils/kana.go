package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const (
	hiraganaFirst = 'ぁ'
	hiraganaLast  = 'ゖ'
	katakanaFirst = 'ァ'
	katakanaLast  = 'ヶ'
	kanaOffset    = katakanaFirst - hiraganaFirst

	// ProlongedSound is the long vowel mark, shared by both syllabaries.
	ProlongedSound = 'ー'
)

var smallKana = map[rune]rune{
	'ぁ': 'あ', 'ぃ': 'い', 'ぅ': 'う', 'ぇ': 'え', 'ぉ': 'お',
	'っ': 'つ', 'ゃ': 'や', 'ゅ': 'ゆ', 'ょ': 'よ', 'ゎ': 'わ',
	'ゕ': 'か', 'ゖ': 'け',
}

// IsHiragana reports whether r is in the hiragana letter block.
func IsHiragana(r rune) bool {
	return r >= hiraganaFirst && r <= hiraganaLast
}

// IsKatakana reports whether r is in the katakana letter block.
func IsKatakana(r rune) bool {
	return r >= katakanaFirst && r <= katakanaLast
}

// IsKana checks for hiragana, katakana or the prolonged sound mark.
func IsKana(r rune) bool {
	return IsHiragana(r) || IsKatakana(r) || r == ProlongedSound
}

// NormalizeRune maps a single input rune onto the dictionary reading alphabet.
// Half-width forms are widened and katakana is folded to hiragana.
// The mapping is always one rune to one rune so offsets stay stable.
func NormalizeRune(r rune) rune {
	if p := width.LookupRune(r); p.Kind() == width.EastAsianHalfwidth {
		if w := p.Wide(); w != 0 {
			r = w
		}
	}
	switch {
	case IsKatakana(r):
		return r - kanaOffset
	case r == 'ヽ' || r == 'ヾ':
		return r - kanaOffset
	}
	return r
}

// NormalizeKana applies NormalizeRune to every rune of s.
func NormalizeKana(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(NormalizeRune(r))
	}
	return b.String()
}

// ToKatakana converts hiragana letters in s to katakana, leaving other runes alone.
func ToKatakana(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if IsHiragana(r) {
			r += kanaOffset
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FoldRune strips voicing marks and maps small kana to their full size form.
// Used as the key for ambiguous search.
func FoldRune(r rune) rune {
	r = NormalizeRune(r)
	if big, ok := smallKana[r]; ok {
		return big
	}
	decomposed := []rune(norm.NFD.String(string(r)))
	if len(decomposed) > 0 {
		return decomposed[0]
	}
	return r
}

// FoldKana applies FoldRune to every rune of s.
func FoldKana(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(FoldRune(r))
	}
	return b.String()
}

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsValidInput checks if input should be sent to the converter.
// Empty strings, pure numbers and strings without a single kana are rejected.
func IsValidInput(s string) bool {
	if len(s) == 0 || IsOnlyNumbers(s) {
		return false
	}
	for _, r := range s {
		if IsKana(NormalizeRune(r)) {
			return true
		}
	}
	return false
}

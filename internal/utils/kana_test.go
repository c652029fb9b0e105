package utils

import "testing"

func TestNormalizeKana(t *testing.T) {
	testCases := []struct {
		input       string
		expected    string
		description string
	}{
		{"あい", "あい", "Hiragana untouched"},
		{"アイ", "あい", "Katakana folded"},
		{"ｱｲ", "あい", "Half-width katakana widened"},
		{"コーヒー", "こーひー", "Prolonged sound kept"},
		{"abc", "abc", "ASCII untouched"},
		{"ヾ", "ゞ", "Iteration mark"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := NormalizeKana(tc.input)
			if got != tc.expected {
				t.Errorf("NormalizeKana(%q) = %q, want %q", tc.input, got, tc.expected)
			}
			if len([]rune(got)) != len([]rune(tc.input)) {
				t.Errorf("NormalizeKana(%q) changed rune count", tc.input)
			}
		})
	}
}

func TestFoldKana(t *testing.T) {
	testCases := []struct {
		input       string
		expected    string
		description string
	}{
		{"がっこう", "かつこう", "Voiced and small tsu"},
		{"ぱん", "はん", "Semi-voiced"},
		{"きゃ", "きや", "Small ya"},
		{"ガ", "か", "Katakana voiced"},
	}

	for _, tc := range testCases {
		got := FoldKana(tc.input)
		if got != tc.expected {
			t.Errorf("%s: FoldKana(%q) = %q, want %q", tc.description, tc.input, got, tc.expected)
		}
	}
}

func TestToKatakana(t *testing.T) {
	if got := ToKatakana("かな漢字"); got != "カナ漢字" {
		t.Errorf("ToKatakana = %q", got)
	}
}

func TestIsValidInput(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
	}{
		{"", false},
		{"1234", false},
		{"hello", false},
		{"かな", true},
		{"ｶﾅ", true},
		{"kaな", true},
	}
	for _, tc := range testCases {
		if got := IsValidInput(tc.input); got != tc.expected {
			t.Errorf("IsValidInput(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestCandidateFilter(t *testing.T) {
	f := NewCandidateFilter()
	if !f.ShouldInclude("愛", "あい") {
		t.Fatal("first sighting must be included")
	}
	if f.ShouldInclude("愛", "あい") {
		t.Error("duplicate must be rejected")
	}
	if !f.ShouldInclude("愛", "あいい") {
		t.Error("different reading is a different candidate")
	}
	f.Reset()
	if f.Len() != 0 || !f.ShouldInclude("愛", "あい") {
		t.Error("reset must forget keys")
	}
}

func TestBounded(t *testing.T) {
	b := NewBounded[int](2)
	if err := b.Append(1); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(2); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(3); err == nil {
		t.Error("append past limit must fail")
	}
	if b.Len() != 2 || b.At(1) != 2 || b.Cap() != 2 {
		t.Errorf("unexpected contents %v", b.Items())
	}
}

func TestCreateRankList(t *testing.T) {
	ranks := CreateRankList(3)
	if len(ranks) != 3 || ranks[0] != 1 || ranks[2] != 3 {
		t.Errorf("CreateRankList(3) = %v", ranks)
	}
	if len(CreateRankList(0)) != 0 {
		t.Error("CreateRankList(0) should be empty")
	}
}

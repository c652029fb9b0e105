package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []*Entry {
	return []*Entry{
		{Surface: "亜", Reading: "あ", Cost: 100},
		{Surface: "愛", Reading: "あい", Cost: 50},
		{Surface: "藍", Reading: "あい", Cost: 50},
		{Surface: "合", Reading: "あい", Cost: 80},
		{Surface: "ありがとう", Reading: "ありがとう", Cost: 40},
		{Surface: "蟻", Reading: "あり", Cost: 200},
		{Surface: "学校", Reading: "がっこう", Cost: 120},
	}
}

func surfaces(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Entry.Surface
	}
	return out
}

func TestLexiconLookupOrder(t *testing.T) {
	store := NewStore(nil, NewLayer("sys", SourceSystem, 0, testEntries()))
	lex := NewLexicon(store, nil, LexiconOptions{})

	got := lex.Lookup("あいう")
	assert.Equal(t, []string{"亜", "愛", "藍", "合"}, surfaces(got))
	assert.Equal(t, 1, got[0].Length)
	assert.Equal(t, 2, got[1].Length)
}

func TestLexiconSourcePriority(t *testing.T) {
	sys := NewLayer("sys", SourceSystem, 0, []*Entry{{Surface: "藍", Reading: "あい", Cost: 50}})
	add := NewLayer("add", SourceAdditional, 0, []*Entry{{Surface: "哀", Reading: "あい", Cost: 50}})
	learned := NewLearned("", DefaultLearnPolicy())
	learned.Reinforce([]*Entry{{Surface: "娃", Reading: "あい", Cost: 250}}, "")

	lex := NewLexicon(NewStore(nil, add, sys), learned, LexiconOptions{})
	got := lex.Lookup("あい")
	require.Len(t, got, 3)
	assert.Equal(t, "娃", got[0].Entry.Surface, "learned cost 50 wins the tie")
	assert.Equal(t, SourceLearned, got[0].Entry.Source)
	assert.Equal(t, "藍", got[1].Entry.Surface)
	assert.Equal(t, "哀", got[2].Entry.Surface)
}

func TestLexiconAmbiguous(t *testing.T) {
	store := NewStore(nil, NewLayer("sys", SourceSystem, 0, testEntries()))

	strict := NewLexicon(store, nil, LexiconOptions{})
	assert.Empty(t, strict.Lookup("かつこう"))

	loose := NewLexicon(store, nil, LexiconOptions{Ambiguous: true, AmbiguityPenalty: 1000})
	got := loose.Lookup("かつこう")
	require.Len(t, got, 1)
	assert.Equal(t, "学校", got[0].Entry.Surface)
	assert.True(t, got[0].Ambiguous)
	assert.Equal(t, 1120, got[0].Cost())

	exact := loose.Lookup("がっこう")
	require.Len(t, exact, 1)
	assert.False(t, exact[0].Ambiguous, "exact hits are not reported twice")
}

func TestLexiconPredict(t *testing.T) {
	store := NewStore(nil, NewLayer("sys", SourceSystem, 0, testEntries()))
	lex := NewLexicon(store, nil, LexiconOptions{})

	got := lex.Predict("あり", 0)
	assert.Equal(t, []string{"ありがとう"}, surfaces(got))
	assert.Equal(t, 2, got[0].Length)

	got = lex.Predict("あ", 2)
	assert.Equal(t, []string{"ありがとう", "愛"}, surfaces(got))

	assert.True(t, lex.Extends("あり"))
	assert.False(t, lex.Extends("ありがとう"))
	assert.Empty(t, lex.Predict("", 0))
}

func TestLexiconPredictScanBoundAcrossLayers(t *testing.T) {
	first := NewLayer("sys", SourceSystem, 0, []*Entry{
		{Surface: "愛", Reading: "あい", Cost: 50},
		{Surface: "蟻", Reading: "あり", Cost: 200},
	})
	second := NewLayer("add", SourceAdditional, 0, []*Entry{
		{Surface: "秋", Reading: "あき", Cost: 30},
		{Surface: "朝", Reading: "あさ", Cost: 20},
	})
	tests := []struct {
		layers      []*Layer
		description string
	}{
		{[]*Layer{first, second}, "system first"},
		{[]*Layer{second, first}, "additional first"},
	}
	for _, tt := range tests {
		lex := NewLexicon(NewStore(nil, tt.layers...), nil, LexiconOptions{MaxPredictionScan: 2})
		assert.Len(t, lex.Predict("あ", 0), 2, tt.description)
	}
}

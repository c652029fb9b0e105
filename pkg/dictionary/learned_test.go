package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word(surface, reading string, cost int) *Entry {
	return &Entry{Surface: surface, Reading: reading, LeftAttr: 1, RightAttr: 1, Cost: cost}
}

func TestLearnedReinforceLowersCost(t *testing.T) {
	policy := LearnPolicy{InitialCost: 1000, Step: 100, MinCost: 700}
	l := NewLearned("", policy)

	l.Reinforce([]*Entry{word("愛", "あい", 5000)}, "")
	cost, ok := l.Cost(EntryKey("愛", "あい"))
	require.True(t, ok)
	assert.Equal(t, 900, cost, "initial cost is capped then stepped")

	l.Reinforce([]*Entry{word("愛", "あい", 5000)}, "")
	cost, _ = l.Cost(EntryKey("愛", "あい"))
	assert.Equal(t, 800, cost)

	for i := 0; i < 5; i++ {
		l.Reinforce([]*Entry{word("愛", "あい", 5000)}, "")
	}
	cost, _ = l.Cost(EntryKey("愛", "あい"))
	assert.Equal(t, 700, cost, "never below MinCost")

	l.Reinforce([]*Entry{word("安", "あん", 300)}, "")
	cost, _ = l.Cost(EntryKey("安", "あん"))
	assert.Equal(t, 700, cost, "cheap words start below their dictionary cost, clamped")
	assert.True(t, l.Dirty())
}

func TestLearnedSuccessors(t *testing.T) {
	l := NewLearned("", DefaultLearnPolicy())
	last := l.Reinforce([]*Entry{word("今日", "きょう", 100), word("は", "は", 10)}, "")
	assert.Equal(t, EntryKey("は", "は"), last)

	l.Reinforce([]*Entry{word("晴れ", "はれ", 100)}, last)
	l.Reinforce([]*Entry{word("雨", "あめ", 100)}, last)
	l.Reinforce([]*Entry{word("雨", "あめ", 100)}, last)

	next := l.Successors(last, 0)
	require.Len(t, next, 2)
	assert.Equal(t, "雨", next[0].Surface, "more frequent link first")
	assert.Equal(t, "晴れ", next[1].Surface)
	assert.Equal(t, SourceLearned, next[0].Source)

	assert.Len(t, l.Successors(last, 1), 1)
	assert.Empty(t, l.Successors("unknown", 0))

	first := l.Successors(EntryKey("今日", "きょう"), 0)
	require.Len(t, first, 1)
	assert.Equal(t, "は", first[0].Surface)
}

func TestLearnedEvictsLeastRecentlyUsed(t *testing.T) {
	policy := DefaultLearnPolicy()
	policy.MaxEntries = 2
	l := NewLearned("", policy)

	l.Reinforce([]*Entry{word("一", "いち", 100)}, "")
	l.Reinforce([]*Entry{word("二", "に", 100)}, EntryKey("一", "いち"))
	l.Reinforce([]*Entry{word("一", "いち", 100)}, "")
	l.Reinforce([]*Entry{word("三", "さん", 100)}, "")

	assert.Equal(t, 2, l.Len())
	_, ok := l.Cost(EntryKey("二", "に"))
	assert.False(t, ok, "二 was used least recently")
	assert.Empty(t, l.Match("に", false))
	assert.Empty(t, l.Successors(EntryKey("一", "いち"), 0), "links to evicted words go too")
}

func TestLearnedDecay(t *testing.T) {
	policy := LearnPolicy{InitialCost: 1000, Step: 100, MinCost: 0, DecayEvery: 3, DecayStep: 50}
	l := NewLearned("", policy)

	l.Reinforce([]*Entry{word("古", "ふる", 1000)}, "")
	l.Reinforce([]*Entry{word("古", "ふる", 1000)}, "")
	cost, _ := l.Cost(EntryKey("古", "ふる"))
	assert.Equal(t, 800, cost)

	// third confirmation triggers a pass; 古 was touched after the previous pass
	l.Reinforce([]*Entry{word("新", "しん", 1000)}, "")
	cost, _ = l.Cost(EntryKey("古", "ふる"))
	assert.Equal(t, 800, cost)

	for i := 0; i < 3; i++ {
		l.Reinforce([]*Entry{word("新", "しん", 1000)}, "")
	}
	cost, _ = l.Cost(EntryKey("古", "ふる"))
	assert.Equal(t, 850, cost, "untouched words drift back toward their base cost")
}

func TestLearnedSaveOpenRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "learn")
	l := NewLearned(dir, DefaultLearnPolicy())
	last := l.Reinforce([]*Entry{word("今日", "きょう", 100), word("は", "は", 10)}, "")
	l.Reinforce([]*Entry{word("晴れ", "はれ", 100)}, last)
	require.NoError(t, l.Save())
	assert.False(t, l.Dirty())

	for _, p := range LearnedPaths(dir) {
		assert.FileExists(t, p)
	}

	reopened, err := OpenLearned(dir, DefaultLearnPolicy())
	require.NoError(t, err)
	assert.Equal(t, l.Len(), reopened.Len())
	for _, key := range []string{EntryKey("今日", "きょう"), EntryKey("は", "は"), EntryKey("晴れ", "はれ")} {
		want, _ := l.Cost(key)
		got, ok := reopened.Cost(key)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	next := reopened.Successors(last, 0)
	require.Len(t, next, 1)
	assert.Equal(t, "晴れ", next[0].Surface)
	assert.Len(t, reopened.Match("きょうは", false), 1)
}

func TestLearnedClear(t *testing.T) {
	dir := t.TempDir()
	l := NewLearned(dir, DefaultLearnPolicy())
	l.Reinforce([]*Entry{word("愛", "あい", 100)}, "")
	require.NoError(t, l.Save())

	require.NoError(t, l.Clear())
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Match("あい", false))
	for _, p := range LearnedPaths(dir) {
		assert.NoFileExists(t, p)
	}

	reopened, err := OpenLearned(dir, DefaultLearnPolicy())
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

func TestOpenLearnedCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LearnedEntriesName), []byte{0xc1, 0xff, 0x00}, 0644))

	_, err := OpenLearned(dir, DefaultLearnPolicy())
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, filepath.Join(dir, LearnedEntriesName), loadErr.Path)
}

func TestOpenLearnedMissingDir(t *testing.T) {
	l, err := OpenLearned(filepath.Join(t.TempDir(), "nope"), DefaultLearnPolicy())
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestLearnedNamesStable(t *testing.T) {
	first := LearnedNames()
	require.NotEmpty(t, first)
	assert.Equal(t, first, LearnedNames())
	paths := LearnedPaths("/x")
	assert.Equal(t, filepath.Join("/x", first[0]), paths[0])
}

package cli

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/bastiangx/henkan/pkg/config"
	"github.com/bastiangx/henkan/pkg/dictionary"
	"github.com/bastiangx/henkan/pkg/engine"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	store := dictionary.NewStore(nil, dictionary.NewLayer("sys", dictionary.SourceSystem, 0, []*dictionary.Entry{
		{Surface: "亜", Reading: "あ", Cost: 100},
		{Surface: "愛", Reading: "あい", Cost: 50},
		{Surface: "胃", Reading: "い", Cost: 90},
	}))
	eng := engine.NewWithStore(store, nil, engine.Options{})
	t.Cleanup(func() { eng.Close() })
	return eng
}

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func runShell(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	h, err := NewInputHandlerWithIO(newTestEngine(t), config.DefaultConfig().CLI, strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("NewInputHandlerWithIO: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return ansi.ReplaceAllString(out.String(), "")
}

func TestShellConfirmReorders(t *testing.T) {
	out := runShell(t, "あい\n:2\nあい\n:q\n")

	first := strings.Index(out, "2. 亜胃")
	confirmed := strings.Index(out, "confirmed")
	promoted := strings.Index(out, "1. 亜胃")
	if first < 0 || confirmed < 0 || promoted < 0 {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !(first < confirmed && confirmed < promoted) {
		t.Errorf("confirmed candidate should move to the top:\n%s", out)
	}
}

func TestShellCommands(t *testing.T) {
	tests := []struct {
		input       string
		want        string
		description string
	}{
		{"abc\n", "not kana", "latin input is rejected"},
		{"ぬ\n", "no conversion", "uncovered input"},
		{":5\n", "no candidate 5", "confirm without candidates"},
		{":nope\n", "unknown command", "unknown command"},
		{":np\n", "prediction off", "toggle prediction"},
		{":sw\n", "single word on", "toggle single word"},
		{":stats\n", "system=3", "stats"},
		{"あい\n:more\n", "no more candidates", "paging past the end"},
		{":clear\n", "cleared", "clear learned"},
	}
	for _, tt := range tests {
		out := runShell(t, tt.input)
		if !strings.Contains(out, tt.want) {
			t.Errorf("%s: output does not contain %q:\n%s", tt.description, tt.want, out)
		}
	}
}

func TestShellStopsOnQuit(t *testing.T) {
	out := runShell(t, ":q\nあい\n")
	if strings.Contains(out, "愛") {
		t.Errorf("input after :q was processed:\n%s", out)
	}
}

func TestFormatWithCommas(t *testing.T) {
	tests := []struct {
		n           int
		want        string
		description string
	}{
		{0, "0", "zero"},
		{999, "999", "below a thousand"},
		{1000, "1,000", "a thousand"},
		{1234567, "1,234,567", "millions"},
		{-2000, "-2,000", "negative"},
	}
	for _, tt := range tests {
		if got := formatWithCommas(tt.n); got != tt.want {
			t.Errorf("%s: formatWithCommas(%d) = %q, want %q", tt.description, tt.n, got, tt.want)
		}
	}
}

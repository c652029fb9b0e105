// Package cli is an interactive conversion shell for debugging the engine.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/henkan/internal/utils"
	"github.com/bastiangx/henkan/pkg/config"
	"github.com/bastiangx/henkan/pkg/engine"
)

const help = `type kana and press Enter to convert. Commands:
  :N       confirm candidate N and show predictions
  :more    show the next page
  :np      toggle prediction
  :sw      toggle single word mode
  :save    save the learned dictionary
  :clear   clear the learned dictionary
  :stats   show dictionary sizes
  :q       quit`

// InputHandler reads lines from stdin and drives one conversion session.
type InputHandler struct {
	engine  *engine.Engine
	session *engine.Session
	cfg     config.CliConfig
	opts    engine.AnalyzeOptions
	in      io.Reader
	out     io.Writer

	shown        []*engine.Candidate
	requestCount int
}

// NewInputHandler creates a shell on stdin/stdout.
func NewInputHandler(eng *engine.Engine, cfg config.CliConfig) (*InputHandler, error) {
	return NewInputHandlerWithIO(eng, cfg, os.Stdin, os.Stdout)
}

// NewInputHandlerWithIO creates a shell on arbitrary streams.
func NewInputHandlerWithIO(eng *engine.Engine, cfg config.CliConfig, in io.Reader, out io.Writer) (*InputHandler, error) {
	sess, err := eng.NewSession()
	if err != nil {
		return nil, err
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = config.DefaultConfig().CLI.PageSize
	}
	return &InputHandler{engine: eng, session: sess, cfg: cfg, in: in, out: out}, nil
}

// Start runs the loop until EOF or :q.
func (h *InputHandler) Start() error {
	defer h.session.Destroy()
	fmt.Fprintln(h.out, promptStyle.Render("henkan shell"))
	fmt.Fprintln(h.out, help)

	reader := bufio.NewReader(h.in)
	for {
		fmt.Fprint(h.out, promptStyle.Render("> "))
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" && h.handleLine(line) {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handleLine runs one command or conversion. It returns true to quit.
func (h *InputHandler) handleLine(line string) bool {
	if !strings.HasPrefix(line, ":") {
		h.convert(line)
		return false
	}
	cmd := strings.TrimPrefix(line, ":")
	switch cmd {
	case "q", "quit":
		return true
	case "more":
		h.page()
	case "np":
		h.opts.NoPrediction = !h.opts.NoPrediction
		h.printf("prediction %s", onOff(!h.opts.NoPrediction))
	case "sw":
		h.opts.SingleWord = !h.opts.SingleWord
		h.printf("single word %s", onOff(h.opts.SingleWord))
	case "save":
		if err := h.engine.SaveLearned(); err != nil {
			h.fail(err)
			return false
		}
		h.printf("saved to %s", h.engine.LearnedDir())
	case "clear":
		if err := h.engine.ClearLearned(); err != nil {
			h.fail(err)
			return false
		}
		h.shown = nil
		h.printf("learned dictionary cleared")
	case "stats":
		h.printf("%s", formatStats(h.engine.Stats()))
	case "help", "h":
		h.printf("%s", help)
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			h.fail(fmt.Errorf("unknown command %q", line))
			return false
		}
		h.confirm(n)
	}
	return false
}

func (h *InputHandler) convert(text string) {
	h.requestCount++
	if !utils.IsValidInput(text) {
		h.fail(fmt.Errorf("not kana: %q", text))
		return
	}
	start := time.Now()
	ok, err := h.session.Analyze(text, 0, len([]rune(text)), h.opts)
	if err != nil {
		h.fail(err)
		return
	}
	h.shown = nil
	if !ok {
		h.printf("no conversion for %q", text)
		return
	}
	h.page()
	log.Debugf("Took [ %v ] for %q", time.Since(start), text)
}

func (h *InputHandler) confirm(rank int) {
	if rank < 1 || rank > len(h.shown) {
		h.fail(fmt.Errorf("no candidate %d", rank))
		return
	}
	c := h.shown[rank-1]
	if _, err := h.session.Confirm(c); err != nil {
		h.fail(err)
		return
	}
	h.printf("confirmed %s", surfaceStyle.Render(c.Surface))
	h.shown = nil
	h.page()
}

// page prints up to PageSize further candidates.
func (h *InputHandler) page() {
	printed := 0
	for printed < h.cfg.PageSize {
		c, err := h.session.NextCandidate()
		if errors.Is(err, engine.ErrNoMoreCandidates) {
			break
		}
		if err != nil {
			h.fail(err)
			return
		}
		h.shown = append(h.shown, c)
		fmt.Fprintln(h.out, formatCandidate(len(h.shown), c, h.cfg.ShowWeights, h.cfg.ShowWords))
		printed++
	}
	if printed == 0 {
		h.printf("no more candidates")
	}
}

func (h *InputHandler) printf(format string, args ...any) {
	fmt.Fprintf(h.out, format+"\n", args...)
}

func (h *InputHandler) fail(err error) {
	fmt.Fprintln(h.out, errorStyle.Render("error: "+err.Error()))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

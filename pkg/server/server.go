package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/henkan/internal/logger"
	"github.com/bastiangx/henkan/internal/utils"
	"github.com/bastiangx/henkan/pkg/config"
	"github.com/bastiangx/henkan/pkg/engine"
	"github.com/bastiangx/henkan/pkg/lattice"
)

// DefaultSession is used for requests without a sid.
const DefaultSession = "default"

type clientSession struct {
	session   *engine.Session
	delivered []*engine.Candidate
	exhausted bool
}

// Server handles the IPC for conversions
type Server struct {
	engine   *engine.Engine
	sessions map[string]*clientSession
	cfg      atomic.Pointer[config.ServerConfig]
	reader   io.Reader
	writer   *bufio.Writer
	enc      *msgpack.Encoder
	log      *log.Logger
	requests int
}

// NewServer creates a server using stdin/stdout for IPC
func NewServer(eng *engine.Engine, cfg config.ServerConfig) *Server {
	return NewServerWithIO(eng, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server on arbitrary streams.
func NewServerWithIO(eng *engine.Engine, cfg config.ServerConfig, r io.Reader, w io.Writer) *Server {
	bw := bufio.NewWriter(w)
	s := &Server{
		engine:   eng,
		sessions: make(map[string]*clientSession),
		reader:   bufio.NewReader(r),
		writer:   bw,
		enc:      msgpack.NewEncoder(bw),
		log:      logger.New("server"),
	}
	s.SetConfig(cfg)
	return s
}

// SetConfig swaps the server options. It may be called from another goroutine,
// e.g. by a config.Watcher.
func (s *Server) SetConfig(cfg config.ServerConfig) {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = config.DefaultConfig().Server.MaxCandidates
	}
	s.cfg.Store(&cfg)
	s.log.Debug("Server config applied", "max_candidates", cfg.MaxCandidates, "no_prediction", cfg.NoPrediction)
}

func (s *Server) config() config.ServerConfig {
	return *s.cfg.Load()
}

// Start signals readiness and serves requests until the input ends.
func (s *Server) Start() error {
	s.log.Debug("Starting server")
	if err := s.send(Response{Status: StatusReady}); err != nil {
		return err
	}

	dec := msgpack.NewDecoder(s.reader)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("Input closed", "requests", s.requests)
				s.shutdown()
				return nil
			}
			s.log.Errorf("Decoding request: %v", err)
			s.sendError("", fmt.Sprintf("invalid msgpack request: %v", err), CodeBadRequest)
			s.shutdown()
			return err
		}
		s.requests++
		if err := s.send(s.Handle(req)); err != nil {
			s.shutdown()
			return err
		}
	}
}

func (s *Server) shutdown() {
	for id, cs := range s.sessions {
		cs.session.Destroy()
		delete(s.sessions, id)
	}
}

func (s *Server) send(resp Response) error {
	if err := s.enc.Encode(resp); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return err
	}
	return s.writer.Flush()
}

func (s *Server) sendError(id, message string, code int) {
	_ = s.send(errorResponse(id, message, code))
}

func errorResponse(id, message string, code int) Response {
	return Response{ID: id, Status: StatusError, Error: message, Code: code}
}

// Handle runs one request and returns its response.
func (s *Server) Handle(req Request) Response {
	start := time.Now()
	var resp Response
	switch req.Op {
	case "analyze":
		resp = s.handleAnalyze(req)
	case "next":
		resp = s.handleNext(req)
	case "confirm":
		resp = s.handleConfirm(req)
	case "save":
		resp = s.simple(req, s.engine.SaveLearned())
	case "clear":
		resp = s.simple(req, s.engine.ClearLearned())
	case "names":
		resp = Response{Status: StatusOK, OK: true, Names: engine.LearnedNames()}
		if dir := s.engine.LearnedDir(); dir != "" {
			resp.Paths = engine.LearnedPaths(dir)
		}
	case "close":
		resp = s.handleClose(req)
	case "health":
		resp = Response{Status: StatusOK, OK: true, Stats: s.engine.Stats()}
	default:
		resp = errorResponse(req.ID, fmt.Sprintf("unknown op: %q", req.Op), CodeBadRequest)
	}
	resp.ID = req.ID
	resp.TimeTaken = time.Since(start).Microseconds()
	return resp
}

func (s *Server) simple(req Request, err error) Response {
	if err != nil {
		return failure(req.ID, err)
	}
	return Response{Status: StatusOK, OK: true}
}

// failure maps engine errors to response codes.
func failure(id string, err error) Response {
	switch {
	case errors.Is(err, engine.ErrUseAfterDestroy):
		return errorResponse(id, err.Error(), CodeGone)
	case errors.Is(err, engine.ErrStaleCandidate), errors.Is(err, engine.ErrInvalidState):
		return errorResponse(id, err.Error(), CodeConflict)
	case errors.Is(err, lattice.ErrInvalidSpan), errors.Is(err, lattice.ErrInputTooLong):
		return errorResponse(id, err.Error(), CodeBadRequest)
	}
	return errorResponse(id, err.Error(), CodeInternal)
}

func (s *Server) session(id string, create bool) (*clientSession, error) {
	if id == "" {
		id = DefaultSession
	}
	if cs, ok := s.sessions[id]; ok {
		return cs, nil
	}
	if !create {
		return nil, nil
	}
	sess, err := s.engine.NewSession()
	if err != nil {
		return nil, err
	}
	cs := &clientSession{session: sess}
	s.sessions[id] = cs
	return cs, nil
}

func (s *Server) handleAnalyze(req Request) Response {
	if req.Text == "" {
		return errorResponse(req.ID, "missing 'text'", CodeBadRequest)
	}
	if !utils.IsValidInput(req.Text) {
		return errorResponse(req.ID, "text must be kana", CodeBadRequest)
	}
	cs, err := s.session(req.Session, true)
	if err != nil {
		return failure(req.ID, err)
	}
	end := req.End
	if end == 0 {
		end = len([]rune(req.Text))
	}
	cfg := s.config()
	ok, err := cs.session.Analyze(req.Text, req.Start, end, engine.AnalyzeOptions{
		NoPrediction: req.NoPrediction || cfg.NoPrediction,
		SingleWord:   req.SingleWord,
	})
	cs.delivered = cs.delivered[:0]
	cs.exhausted = false
	if err != nil {
		return failure(req.ID, err)
	}
	if !ok {
		cs.exhausted = true
		return Response{Status: StatusOK, Error: engine.ErrAnalysisFailure.Error(), Code: CodeNoConversion}
	}
	return s.collect(cs, req.N)
}

func (s *Server) handleNext(req Request) Response {
	cs, err := s.session(req.Session, false)
	if err != nil {
		return failure(req.ID, err)
	}
	if cs == nil {
		return errorResponse(req.ID, engine.ErrInvalidState.Error()+": analyze first", CodeConflict)
	}
	return s.collect(cs, req.N)
}

func (s *Server) handleConfirm(req Request) Response {
	cs, err := s.session(req.Session, false)
	if err != nil {
		return failure(req.ID, err)
	}
	if cs == nil {
		return errorResponse(req.ID, engine.ErrInvalidState.Error()+": analyze first", CodeConflict)
	}
	if req.Index < 1 || req.Index > len(cs.delivered) {
		return errorResponse(req.ID, fmt.Sprintf("no candidate with rank %d", req.Index), CodeNotFound)
	}
	ok, err := cs.session.Confirm(cs.delivered[req.Index-1])
	if err != nil {
		return failure(req.ID, err)
	}
	cs.delivered = cs.delivered[:0]
	cs.exhausted = false
	resp := s.collect(cs, req.N)
	resp.OK = ok
	return resp
}

func (s *Server) handleClose(req Request) Response {
	id := req.Session
	if id == "" {
		id = DefaultSession
	}
	cs, ok := s.sessions[id]
	if !ok {
		return errorResponse(req.ID, fmt.Sprintf("no session %q", id), CodeNotFound)
	}
	cs.session.Destroy()
	delete(s.sessions, id)
	return Response{Status: StatusOK, OK: true}
}

// collect pulls up to n candidates from the session and ranks them after
// the ones already delivered.
func (s *Server) collect(cs *clientSession, n int) Response {
	limit := s.config().MaxCandidates
	if n > 0 && n < limit {
		limit = n
	}
	var batch []*engine.Candidate
	for len(batch) < limit && !cs.exhausted {
		c, err := cs.session.NextCandidate()
		if errors.Is(err, engine.ErrNoMoreCandidates) {
			cs.exhausted = true
			break
		}
		if err != nil {
			return failure("", err)
		}
		batch = append(batch, c)
	}

	offset := uint16(len(cs.delivered))
	ranks := utils.CreateRankList(len(batch))
	out := make([]Candidate, len(batch))
	for i, c := range batch {
		out[i] = toWire(c, ranks[i]+offset)
	}
	cs.delivered = append(cs.delivered, batch...)
	return Response{
		Status:     StatusOK,
		OK:         true,
		Candidates: out,
		Count:      len(out),
		More:       !cs.exhausted,
	}
}

func toWire(c *engine.Candidate, rank uint16) Candidate {
	return Candidate{
		Surface:     c.Surface,
		Reading:     c.Reading,
		Rank:        rank,
		Weight:      c.Weight,
		WordNum:     c.WordNum,
		Incomplete:  uint8(c.Incomplete),
		Kind:        uint8(c.Kind),
		KindIndex:   c.KindIndex,
		WordLens:    c.WordLens(),
		ReadingLens: c.ReadingLens(),
		LeftAttrs:   c.LeftAttrs(),
		RightAttrs:  c.RightAttrs(),
		TrieValues:  c.TrieValues(),
	}
}

package server

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/henkan/pkg/config"
	"github.com/bastiangx/henkan/pkg/dictionary"
	"github.com/bastiangx/henkan/pkg/engine"
)

func newTestServer(t *testing.T, in io.Reader, out io.Writer) *Server {
	t.Helper()
	store := dictionary.NewStore(nil, dictionary.NewLayer("sys", dictionary.SourceSystem, 0, []*dictionary.Entry{
		{Surface: "亜", Reading: "あ", Cost: 100},
		{Surface: "愛", Reading: "あい", Cost: 50},
		{Surface: "胃", Reading: "い", Cost: 90},
		{Surface: "今日", Reading: "きょう", Cost: 60},
		{Surface: "は", Reading: "は", Cost: 10},
	}))
	eng := engine.NewWithStore(store, nil, engine.Options{})
	t.Cleanup(func() { eng.Close() })
	if in == nil {
		in = &bytes.Buffer{}
	}
	if out == nil {
		out = io.Discard
	}
	return NewServerWithIO(eng, config.DefaultConfig().Server, in, out)
}

func wireSurfaces(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Surface
	}
	return out
}

func TestAnalyzeAndNext(t *testing.T) {
	s := newTestServer(t, nil, nil)

	resp := s.Handle(Request{ID: "1", Op: "analyze", Text: "あい", N: 1})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, "1", resp.ID)
	assert.True(t, resp.OK)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "愛", resp.Candidates[0].Surface)
	assert.Equal(t, uint16(1), resp.Candidates[0].Rank)
	assert.Equal(t, 50, resp.Candidates[0].Weight)
	assert.True(t, resp.More)

	resp = s.Handle(Request{ID: "2", Op: "next", N: 1})
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "亜胃", resp.Candidates[0].Surface)
	assert.Equal(t, uint16(2), resp.Candidates[0].Rank)
	assert.Equal(t, []int{1, 1}, resp.Candidates[0].WordLens)

	resp = s.Handle(Request{ID: "3", Op: "next"})
	assert.Empty(t, resp.Candidates)
	assert.False(t, resp.More)
}

func TestConfirmByRank(t *testing.T) {
	s := newTestServer(t, nil, nil)

	resp := s.Handle(Request{ID: "1", Op: "analyze", Text: "あい", NoPrediction: true})
	require.Equal(t, []string{"愛", "亜胃"}, wireSurfaces(resp.Candidates))

	resp = s.Handle(Request{ID: "2", Op: "confirm", Index: 2})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.True(t, resp.OK)

	resp = s.Handle(Request{ID: "3", Op: "analyze", Text: "あい", NoPrediction: true})
	assert.Equal(t, []string{"亜胃", "愛"}, wireSurfaces(resp.Candidates))
	assert.Equal(t, uint8(dictionary.SourceLearned), resp.Candidates[0].Kind)
}

func TestConfirmReturnsPredictions(t *testing.T) {
	s := newTestServer(t, nil, nil)

	s.Handle(Request{Op: "analyze", Text: "きょうは", NoPrediction: true})
	resp := s.Handle(Request{Op: "confirm", Index: 1})
	require.True(t, resp.OK, resp.Error)

	s.Handle(Request{Op: "analyze", Text: "きょう", NoPrediction: true})
	resp = s.Handle(Request{Op: "confirm", Index: 1})
	require.True(t, resp.OK, resp.Error)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "は", resp.Candidates[0].Surface)
	assert.Equal(t, uint8(engine.IncompleteLastWord), resp.Candidates[0].Incomplete)
	assert.Equal(t, uint16(1), resp.Candidates[0].Rank)
}

func TestAnalysisFailureIsNotAnError(t *testing.T) {
	s := newTestServer(t, nil, nil)
	resp := s.Handle(Request{ID: "x", Op: "analyze", Text: "ぬ"})
	assert.Equal(t, StatusOK, resp.Status)
	assert.False(t, resp.OK)
	assert.Equal(t, CodeNoConversion, resp.Code)
	assert.Empty(t, resp.Candidates)
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t, nil, nil)
	tests := []struct {
		req         Request
		code        int
		description string
	}{
		{Request{Op: "bogus"}, CodeBadRequest, "unknown op"},
		{Request{Op: "analyze"}, CodeBadRequest, "missing text"},
		{Request{Op: "analyze", Text: "12345"}, CodeBadRequest, "digits are not kana"},
		{Request{Op: "next", Session: "fresh"}, CodeConflict, "next before analyze"},
		{Request{Op: "confirm", Session: "fresh"}, CodeConflict, "confirm before analyze"},
		{Request{Op: "analyze", Text: "あい", Start: 1, End: 5}, CodeBadRequest, "span past the input"},
		{Request{Op: "confirm", Index: 9}, CodeNotFound, "rank out of range"},
		{Request{Op: "close", Session: "nobody"}, CodeNotFound, "unknown session"},
	}
	for _, tt := range tests {
		resp := s.Handle(tt.req)
		assert.Equal(t, StatusError, resp.Status, tt.description)
		assert.Equal(t, tt.code, resp.Code, tt.description)
		assert.NotEmpty(t, resp.Error, tt.description)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	s := newTestServer(t, nil, nil)
	a := s.Handle(Request{Op: "analyze", Session: "a", Text: "あい"})
	b := s.Handle(Request{Op: "analyze", Session: "b", Text: "きょうは", NoPrediction: true})
	require.NotEmpty(t, a.Candidates)
	require.NotEmpty(t, b.Candidates)

	resp := s.Handle(Request{Op: "close", Session: "a"})
	assert.True(t, resp.OK)
	resp = s.Handle(Request{Op: "next", Session: "a"})
	assert.Equal(t, CodeConflict, resp.Code)
	resp = s.Handle(Request{Op: "confirm", Session: "b", Index: 1})
	assert.True(t, resp.OK, resp.Error)
}

func TestNamesAndHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	resp := s.Handle(Request{Op: "names"})
	assert.Equal(t, engine.LearnedNames(), resp.Names)
	assert.Empty(t, resp.Paths, "in-memory learning has no files")

	resp = s.Handle(Request{Op: "health"})
	assert.True(t, resp.OK)
	assert.Equal(t, 5, resp.Stats["system"])
	assert.Equal(t, 0, resp.Stats["learned"])
}

func TestSetConfigLimitsCandidates(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.SetConfig(config.ServerConfig{MaxCandidates: 1})
	resp := s.Handle(Request{Op: "analyze", Text: "あい", N: 10})
	assert.Len(t, resp.Candidates, 1)

	s.SetConfig(config.ServerConfig{MaxCandidates: 5, NoPrediction: true})
	resp = s.Handle(Request{Op: "analyze", Text: "あい"})
	assert.Len(t, resp.Candidates, 2)
}

func TestStartStream(t *testing.T) {
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	require.NoError(t, enc.Encode(Request{ID: "a", Op: "analyze", Text: "あい"}))
	require.NoError(t, enc.Encode(Request{ID: "b", Op: "health"}))

	var out bytes.Buffer
	s := newTestServer(t, &in, &out)
	require.NoError(t, s.Start())

	dec := msgpack.NewDecoder(&out)
	var responses []Response
	for {
		var r Response
		if err := dec.Decode(&r); err != nil {
			require.True(t, errors.Is(err, io.EOF), err)
			break
		}
		responses = append(responses, r)
	}
	require.Len(t, responses, 3)
	assert.Equal(t, StatusReady, responses[0].Status)
	assert.Equal(t, "a", responses[1].ID)
	assert.Equal(t, "愛", responses[1].Candidates[0].Surface)
	assert.GreaterOrEqual(t, responses[1].TimeTaken, int64(0))
	assert.Equal(t, "b", responses[2].ID)
}

func TestStartRejectsGarbage(t *testing.T) {
	var out bytes.Buffer
	s := newTestServer(t, bytes.NewReader([]byte{0xc1}), &out)
	assert.Error(t, s.Start())
}

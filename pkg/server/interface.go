/*
Package server implements the msgpack IPC front end of the conversion engine.

Clients write msgpack encoded requests to stdin and read msgpack encoded
responses from stdout, one response per request, in order. Logs go to stderr.

# IPC

Every request names an operation and carries an ID that is echoed back:

	{"id": "1", "op": "analyze", "text": "きょうは", "n": 5}

The server answers with ranked candidates:

	{"id": "1", "status": "ok", "ok": true, "c": [{"s": "今日は", "r": "きょうは", "k": 1, "w": 70, ...}], "n": 1, "more": true, "t": 212}

Requests on the same "sid" share one conversion session; an empty sid means
the default session. Candidates are referred to by their rank "k", which keeps
counting up across "next" requests until the next "analyze" or "confirm".

# Operations

  - analyze: convert text[start:end] (rune offsets, end 0 means the whole text)
  - next: fetch up to n more candidates
  - confirm: learn candidate "index" and return predicted follow-on words
  - save, clear: flush or wipe the learned dictionary
  - names: list the learned dictionary file names and paths
  - close: destroy the session
  - health: report dictionary sizes

A false "ok" on analyze means no conversion covers the span; this is not an
error and the client may retry with another range. Timing "t" is in microseconds.
*/
package server

// Request is one client message.
type Request struct {
	ID           string `msgpack:"id"`
	Op           string `msgpack:"op"`
	Session      string `msgpack:"sid,omitempty"`
	Text         string `msgpack:"text,omitempty"`
	Start        int    `msgpack:"start,omitempty"`
	End          int    `msgpack:"end,omitempty"`
	NoPrediction bool   `msgpack:"np,omitempty"`
	SingleWord   bool   `msgpack:"sw,omitempty"`
	N            int    `msgpack:"n,omitempty"`
	Index        int    `msgpack:"index,omitempty"`
}

// Candidate is the wire form of one conversion candidate.
type Candidate struct {
	Surface     string   `msgpack:"s"`
	Reading     string   `msgpack:"r"`
	Rank        uint16   `msgpack:"k"`
	Weight      int      `msgpack:"w"`
	WordNum     int      `msgpack:"wn"`
	Incomplete  uint8    `msgpack:"i"`
	Kind        uint8    `msgpack:"kd"`
	KindIndex   int      `msgpack:"ki"`
	WordLens    []int    `msgpack:"wl"`
	ReadingLens []int    `msgpack:"rl"`
	LeftAttrs   []int    `msgpack:"la"`
	RightAttrs  []int    `msgpack:"ra"`
	TrieValues  []uint32 `msgpack:"tv"`
}

// Response answers one Request.
type Response struct {
	ID         string         `msgpack:"id"`
	Status     string         `msgpack:"status"`
	OK         bool           `msgpack:"ok"`
	Candidates []Candidate    `msgpack:"c,omitempty"`
	Count      int            `msgpack:"n"`
	More       bool           `msgpack:"more"`
	Names      []string       `msgpack:"names,omitempty"`
	Paths      []string       `msgpack:"paths,omitempty"`
	Stats      map[string]int `msgpack:"stats,omitempty"`
	Error      string         `msgpack:"e,omitempty"`
	Code       int            `msgpack:"code,omitempty"`
	TimeTaken  int64          `msgpack:"t"`
}

// Status values.
const (
	StatusReady = "ready"
	StatusOK    = "ok"
	StatusError = "error"
)

// Error codes.
const (
	CodeBadRequest   = 400
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeGone         = 410
	CodeNoConversion = 422
	CodeInternal     = 500
)

// Package debugserver is the downstream consumer of the interpreter's
// statement-level execution trace described in SPEC_FULL.md §12: it runs a
// resolved program with a step hook installed, and streams each step to
// attached WebSocket clients as JSON, alongside a one-shot JSON report.
//
// Grounded on the teacher's internal/network/websocket.go (gorilla/websocket
// Upgrader, per-connection send channel and reader goroutine) generalized
// from an arbitrary bidirectional socket to a one-way broadcast of
// interpreter steps. golang.org/x/sync/errgroup runs the interpreter worker
// goroutine alongside the broadcast fan-out; golang.org/x/sync/singleflight
// collapses concurrent requests for the same source text (keyed by its
// blake2b hash, internal/history.HashSource) into one resolve+run pass.
package debugserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"kano/internal/history"
	"kano/internal/kano"
)

// Step is one broadcast unit of the live debug stream: the source row about
// to execute.
type Step struct {
	Session   string `json:"session"`
	SourceRow int    `json:"source_row"`
	Seq       int    `json:"seq"`
}

// Report is the one-shot `kano debug <file>` JSON result.
type Report struct {
	Session     string   `json:"session"`
	SourceHash  string   `json:"source_hash"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Stdout      string   `json:"stdout"`
	StepCount   int      `json:"step_count"`
	WallTime    string   `json:"wall_time"`
	Error       string   `json:"error,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Server holds live WebSocket clients and collapses concurrent identical
// debug requests.
type Server struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[string]*client
	group    singleflight.Group
}

func New() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// ServeHTTP upgrades r to a WebSocket and registers the connection as a
// broadcast target until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 64)}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) writePump(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	c.conn.Close()
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		close(c.send)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(step Step) {
	msg, err := json.Marshal(step)
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Run resolves and interprets source under a tracked session id, streaming
// one Step per executed statement to every attached client, and returns a
// one-shot Report. Concurrent calls carrying identical source collapse into
// a single resolve+run pass via singleflight.
func (s *Server) Run(ctx context.Context, source, filename string) (*Report, error) {
	hash := history.HashSource([]byte(source))
	v, err, _ := s.group.Do(hash, func() (interface{}, error) {
		return s.runOnce(ctx, source, filename, hash)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (s *Server) runOnce(ctx context.Context, source, filename, hash string) (*Report, error) {
	session := uuid.NewString()
	start := time.Now()

	prog, diags := kano.Compile(source, filename)
	report := &Report{Session: session, SourceHash: hash, Diagnostics: diags.Strings()}
	if diags.HasErrors() {
		report.WallTime = time.Since(start).String()
		return report, nil
	}

	var stdout stdoutBuffer
	seq := 0

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return kano.InterpretTraced(prog, &stdout, strings.NewReader(""), 0, func(row int) {
			seq++
			select {
			case <-gctx.Done():
			default:
				s.broadcast(Step{Session: session, SourceRow: row, Seq: seq})
			}
		})
	})

	runErr := g.Wait()
	report.Stdout = stdout.String()
	report.StepCount = seq
	report.WallTime = time.Since(start).String()
	if runErr != nil {
		report.Error = runErr.Error()
	}
	return report, nil
}

type stdoutBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *stdoutBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *stdoutBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

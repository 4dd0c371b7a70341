package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// embedRequest is one framed request on the worker port. Frames are
// newline-delimited JSON; the id correlates the reply.
type embedRequest struct {
	ID    uint64   `json:"id"`
	Texts []string `json:"texts"`
}

type embedReply struct {
	ID      uint64                    `json:"id"`
	Results []schemas.EmbeddingResult `json:"results,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// EmbedClient talks to the persistent embedding worker. One connection is
// shared across requests; replies are matched by incrementing correlation id.
// A disconnect rejects every in-flight request, and the next request redials.
type EmbedClient struct {
	log     *zap.Logger
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context) (net.Conn, error)

	mu      sync.Mutex
	conn    net.Conn
	enc     *json.Encoder
	nextID  uint64
	pending map[uint64]chan embedReply
}

// NewEmbedClient creates a client for the worker at addr. The connection is
// established lazily on first use.
func NewEmbedClient(log *zap.Logger, addr string, timeout time.Duration) *EmbedClient {
	c := &EmbedClient{
		log:     log.Named("embed"),
		addr:    addr,
		timeout: timeout,
		pending: map[uint64]chan embedReply{},
	}
	c.dial = func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
	return c
}

// Embed returns one embedding per input text, in order.
func (c *EmbedClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id, ch, err := c.send(ctx, texts)
	if err != nil {
		return nil, err
	}
	defer c.forget(id)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-ch:
		if reply.Error != "" {
			return nil, fmt.Errorf("embedding worker: %s", reply.Error)
		}
		if len(reply.Results) != len(texts) {
			return nil, fmt.Errorf("embedding worker returned %d results for %d texts", len(reply.Results), len(texts))
		}
		out := make([][]float64, len(reply.Results))
		for i, r := range reply.Results {
			if !r.Success {
				return nil, fmt.Errorf("embedding %d failed: %s", i, r.Error)
			}
			out[i] = r.Embedding
		}
		return out, nil
	}
}

func (c *EmbedClient) send(ctx context.Context, texts []string) (uint64, chan embedReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("dial embedding worker %s: %w", c.addr, err)
		}
		c.conn = conn
		c.enc = json.NewEncoder(conn)
		go c.readLoop(conn)
	}

	c.nextID++
	id := c.nextID
	ch := make(chan embedReply, 1)
	c.pending[id] = ch

	if err := c.enc.Encode(embedRequest{ID: id, Texts: texts}); err != nil {
		delete(c.pending, id)
		c.teardownLocked(err)
		return 0, nil, fmt.Errorf("write to embedding worker: %w", err)
	}
	return id, ch, nil
}

// readLoop dispatches framed replies to their waiters until the connection
// dies.
func (c *EmbedClient) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 8<<20)

	for scanner.Scan() {
		var reply embedReply
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			c.log.Warn("malformed embedding frame", zap.Error(err))
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[reply.ID]
		delete(c.pending, reply.ID)
		c.mu.Unlock()
		if ok {
			ch <- reply
		}
	}

	c.mu.Lock()
	if c.conn == conn {
		c.teardownLocked(scanner.Err())
	}
	c.mu.Unlock()
}

// teardownLocked closes the connection and rejects every in-flight request so
// no caller waits out its full timeout against a dead port.
func (c *EmbedClient) teardownLocked(cause error) {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.enc = nil
	}
	msg := "worker disconnected"
	if cause != nil {
		msg = cause.Error()
	}
	for id, ch := range c.pending {
		ch <- embedReply{ID: id, Error: msg}
		delete(c.pending, id)
	}
	c.log.Warn("embedding worker connection lost", zap.String("cause", msg))
}

func (c *EmbedClient) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close shuts the connection down and rejects in-flight requests.
func (c *EmbedClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked(nil)
	return nil
}

// Cosine returns the cosine similarity of two vectors, 0 for degenerate
// input.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

package services

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

func envelope(payload any) []byte {
	out, _ := json.Marshal(schemas.OKResponse(payload))
	return out
}

func testBrokerConfig(url string) config.ServicesConfig {
	ep := config.ServiceEndpoint{URL: url, Timeout: 5 * time.Second}
	return config.ServicesConfig{
		NearestAddress:  ep,
		BestResume:      ep,
		JobData:         ep,
		SingleFlightTTL: 30 * time.Second,
	}
}

func TestBrokerSingleFlightCollapses(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		w.Write(envelope(map[string]int{"index": 1}))
	}))
	defer srv.Close()

	b := NewBroker(zap.NewNop(), testBrokerConfig(srv.URL), 0.5, nil)
	addrs := []profile.Address{{City: "Boston"}, {City: "Austin"}}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := b.NearestAddress(context.Background(), []string{"Austin, TX"}, addrs)
			require.NoError(t, err)
			results[i] = idx
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	for _, idx := range results {
		assert.Equal(t, 1, idx)
	}
}

func TestBrokerTTLCacheExpires(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write(envelope(map[string]int{"index": 0}))
	}))
	defer srv.Close()

	b := NewBroker(zap.NewNop(), testBrokerConfig(srv.URL), 0.5, nil)
	now := time.Now()
	b.now = func() time.Time { return now }
	addrs := []profile.Address{{City: "Boston"}}

	_, err := b.NearestAddress(context.Background(), []string{"x"}, addrs)
	require.NoError(t, err)
	_, err = b.NearestAddress(context.Background(), []string{"x"}, addrs)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))

	now = now.Add(time.Minute)
	_, err = b.NearestAddress(context.Background(), []string{"x"}, addrs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestBrokerRejectsOutOfRangeIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(map[string]int{"index": 5}))
	}))
	defer srv.Close()

	b := NewBroker(zap.NewNop(), testBrokerConfig(srv.URL), 0.5, nil)
	_, err := b.BestResume(context.Background(), "desc", []profile.Resume{{FileName: "a.pdf"}})
	assert.ErrorContains(t, err, "out of range")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, Cosine([]float64{1}, []float64{1, 2}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestRankBySimilarity(t *testing.T) {
	query := []float64{1, 0}
	vectors := [][]float64{
		{0.9, 0.1}, // close
		{0, 1},     // orthogonal, dropped
		{1, 0},     // exact
	}
	out := RankBySimilarity(query, vectors, []string{"near", "far", "exact"}, 0.5)
	assert.Equal(t, []string{"exact", "near"}, out)
}

// pipeWorker answers embed requests over a net.Pipe, optionally out of order.
type pipeWorker struct {
	server net.Conn
	reqs   chan embedRequest
}

func startPipeWorker(t *testing.T, c *EmbedClient) *pipeWorker {
	t.Helper()
	client, server := net.Pipe()
	c.dial = func(ctx context.Context) (net.Conn, error) { return client, nil }

	w := &pipeWorker{server: server, reqs: make(chan embedRequest, 8)}
	go func() {
		dec := json.NewDecoder(server)
		for {
			var req embedRequest
			if err := dec.Decode(&req); err != nil {
				return
			}
			w.reqs <- req
		}
	}()
	return w
}

func (w *pipeWorker) reply(t *testing.T, id uint64, dims int, count int) {
	t.Helper()
	results := make([]schemas.EmbeddingResult, count)
	for i := range results {
		vec := make([]float64, dims)
		vec[0] = float64(id)
		results[i] = schemas.EmbeddingResult{Success: true, Embedding: vec, Dimensions: dims}
	}
	require.NoError(t, json.NewEncoder(w.server).Encode(embedReply{ID: id, Results: results}))
}

func TestEmbedClientCorrelatesOutOfOrderReplies(t *testing.T) {
	c := NewEmbedClient(zap.NewNop(), "test", 5*time.Second)
	w := startPipeWorker(t, c)

	type result struct {
		vectors [][]float64
		err     error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)

	go func() {
		v, err := c.Embed(context.Background(), []string{"a"})
		first <- result{v, err}
	}()
	req1 := <-w.reqs
	go func() {
		v, err := c.Embed(context.Background(), []string{"b", "c"})
		second <- result{v, err}
	}()
	req2 := <-w.reqs

	// Answer the second request before the first.
	w.reply(t, req2.ID, 4, 2)
	w.reply(t, req1.ID, 4, 1)

	r1 := <-first
	require.NoError(t, r1.err)
	require.Len(t, r1.vectors, 1)
	assert.Equal(t, float64(req1.ID), r1.vectors[0][0])

	r2 := <-second
	require.NoError(t, r2.err)
	require.Len(t, r2.vectors, 2)
	assert.Equal(t, float64(req2.ID), r2.vectors[0][0])
}

func TestEmbedClientDisconnectRejectsPending(t *testing.T) {
	c := NewEmbedClient(zap.NewNop(), "test", 5*time.Second)
	w := startPipeWorker(t, c)

	errs := make(chan error, 1)
	go func() {
		_, err := c.Embed(context.Background(), []string{"a"})
		errs <- err
	}()
	<-w.reqs
	w.server.Close()

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request was not rejected on disconnect")
	}
}

func TestLLMClientValidatesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "payload": [{"questionId": "q1", "response": "Yes"}]}`))
	}))
	defer srv.Close()

	c, err := NewLLMClient(zap.NewNop(), newHTTPClient(zap.NewNop()),
		config.ServiceEndpoint{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	answers, err := c.ResolveQuestions(context.Background(), schemas.LLMResolveRequest{
		Questions: []schemas.LLMQuestion{{ID: "q1", Label: "Work authorized?"}},
	})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "q1", answers[0].QuestionID)
	assert.Equal(t, schemas.StringOrList{"Yes"}, answers[0].Response)
}

func TestLLMClientRejectsContractViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// questionId is a number, which the contract forbids.
		w.Write([]byte(`{"success": true, "payload": [{"questionId": 7, "response": "Yes"}]}`))
	}))
	defer srv.Close()

	c, err := NewLLMClient(zap.NewNop(), newHTTPClient(zap.NewNop()),
		config.ServiceEndpoint{URL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = c.ResolveQuestions(context.Background(), schemas.LLMResolveRequest{
		Questions: []schemas.LLMQuestion{{ID: "q1", Label: "x"}},
	})
	assert.ErrorContains(t, err, "violates contract")
}

func TestVerificationRejectsStaleValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(verificationPayload{
			Value:      "123456",
			ReceivedAt: time.Now().Add(-time.Hour),
		}))
	}))
	defer srv.Close()

	c := NewVerificationClient(zap.NewNop(), newHTTPClient(zap.NewNop()),
		config.ServiceEndpoint{URL: srv.URL, Timeout: 5 * time.Second}, 5*time.Minute, nil)

	_, err := c.RecentOTP(context.Background())
	assert.ErrorContains(t, err, "stale")
}

func TestVerificationFreshOTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg schemas.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, schemas.ActionFetchRecentVerificationOTP, msg.Action)
		w.Write(envelope(verificationPayload{Value: "654321", ReceivedAt: time.Now()}))
	}))
	defer srv.Close()

	c := NewVerificationClient(zap.NewNop(), newHTTPClient(zap.NewNop()),
		config.ServiceEndpoint{URL: srv.URL, Timeout: 5 * time.Second}, 5*time.Minute, nil)

	otp, err := c.RecentOTP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "654321", otp)
}

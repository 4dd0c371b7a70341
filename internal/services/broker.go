package services

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

// embedder is the slice of the worker client the broker ranks with.
type embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Broker fronts the external services. Identical concurrent requests collapse
// into one in-flight call, and results are reusable for a short TTL since the
// same question text recurs across containers of one page.
type Broker struct {
	log      *zap.Logger
	cfg      config.ServicesConfig
	http     *httpClient
	embed    embedder
	minScore float64

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// NewBroker wires the broker. embed may be nil; label ranking then fails
// softly and the resolver falls through to its next layer.
func NewBroker(log *zap.Logger, cfg config.ServicesConfig, minScore float64, embed embedder) *Broker {
	return &Broker{
		log:      log.Named("broker"),
		cfg:      cfg,
		http:     newHTTPClient(log),
		embed:    embed,
		minScore: minScore,
		cache:    map[string]cacheEntry{},
		now:      time.Now,
	}
}

// HTTP exposes the shared transport for sibling clients.
func (b *Broker) HTTP() *httpClient { return b.http }

// NearestAddress returns the index of the profile address closest to the
// job's posted locations.
func (b *Broker) NearestAddress(ctx context.Context, locations []string, addrs []profile.Address) (int, error) {
	key := cacheKey("nearestAddress", locations, len(addrs))
	idx, err := b.once(ctx, key, func(ctx context.Context) (any, error) {
		var out struct {
			Index int `json:"index"`
		}
		req := map[string]any{"locations": locations, "addresses": addrs}
		if err := b.http.postJSON(ctx, b.cfg.NearestAddress, schemas.ActionGetNearestAddress, req, &out); err != nil {
			return nil, err
		}
		if out.Index < 0 || out.Index >= len(addrs) {
			return nil, fmt.Errorf("nearest-address index %d out of range", out.Index)
		}
		return out.Index, nil
	})
	if err != nil {
		return 0, err
	}
	return idx.(int), nil
}

// BestResume returns the index of the resume that best fits the job
// description.
func (b *Broker) BestResume(ctx context.Context, description string, resumes []profile.Resume) (int, error) {
	key := cacheKey("bestResume", description, len(resumes))
	idx, err := b.once(ctx, key, func(ctx context.Context) (any, error) {
		var out struct {
			Index int `json:"index"`
		}
		req := map[string]any{"description": description, "resumes": resumes}
		if err := b.http.postJSON(ctx, b.cfg.BestResume, schemas.ActionGetBestResume, req, &out); err != nil {
			return nil, err
		}
		if out.Index < 0 || out.Index >= len(resumes) {
			return nil, fmt.Errorf("best-resume index %d out of range", out.Index)
		}
		return out.Index, nil
	})
	if err != nil {
		return 0, err
	}
	return idx.(int), nil
}

// RankLabels orders catalog label keys by embedding similarity to the
// question label, dropping keys below the configured floor.
func (b *Broker) RankLabels(ctx context.Context, label string, keys []string) ([]string, error) {
	if b.embed == nil {
		return nil, fmt.Errorf("embedding worker not configured")
	}
	if len(keys) == 0 {
		return nil, nil
	}

	key := cacheKey("rankLabels", label, keys)
	ranked, err := b.once(ctx, key, func(ctx context.Context) (any, error) {
		texts := append([]string{label}, keys...)
		vectors, err := b.embed.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		return RankBySimilarity(vectors[0], vectors[1:], keys, b.minScore), nil
	})
	if err != nil {
		return nil, err
	}
	return ranked.([]string), nil
}

// RankBySimilarity orders candidates by cosine similarity to the query
// vector, keeping only those at or above minScore. Ties keep input order.
func RankBySimilarity(query []float64, vectors [][]float64, candidates []string, minScore float64) []string {
	type scored struct {
		key   string
		score float64
	}
	kept := make([]scored, 0, len(candidates))
	for i, cand := range candidates {
		if i >= len(vectors) {
			break
		}
		if s := Cosine(query, vectors[i]); s >= minScore {
			kept = append(kept, scored{key: cand, score: s})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := make([]string, len(kept))
	for i, k := range kept {
		out[i] = k.key
	}
	return out
}

// FetchJobData loads the job posting metadata by key.
func (b *Broker) FetchJobData(ctx context.Context, key schemas.JobKey) (*schemas.JobData, error) {
	var out schemas.JobData
	if err := b.http.postJSON(ctx, b.cfg.JobData, schemas.ActionFetchJobDataByKey, key, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublishResult posts the execution outcome of one application run.
func (b *Broker) PublishResult(ctx context.Context, env schemas.ResultEnvelope) error {
	b.log.Info("publishing execution result",
		zap.String("jobId", env.ID), zap.String("result", string(env.Result)))
	return b.http.postJSON(ctx, b.cfg.JobData, schemas.ActionUpsertJobBatch, env, nil)
}

// once collapses concurrent identical calls and caches the result for the
// configured TTL.
func (b *Broker) once(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := b.cached(key); ok {
		return v, nil
	}

	v, err, _ := b.group.Do(key, func() (any, error) {
		if v, ok := b.cached(key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		b.store(key, v)
		return v, nil
	})
	return v, err
}

func (b *Broker) cached(key string) (any, bool) {
	if b.cfg.SingleFlightTTL <= 0 {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.cache[key]
	if !ok || b.now().After(entry.expires) {
		delete(b.cache, key)
		return nil, false
	}
	return entry.value, true
}

func (b *Broker) store(key string, v any) {
	if b.cfg.SingleFlightTTL <= 0 {
		return
	}
	b.mu.Lock()
	b.cache[key] = cacheEntry{value: v, expires: b.now().Add(b.cfg.SingleFlightTTL)}
	b.mu.Unlock()
}

func cacheKey(op string, parts ...any) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(op))
	for _, p := range parts {
		raw, _ := json.Marshal(p)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(raw)
	}
	return op + ":" + strconv.FormatUint(h.Sum64(), 16)
}

// Package catalog holds the per-platform knowledge the resolver consults
// before any heuristic or LLM escalation: known-question entries matched by
// label similarity, and label definitions keyed for the embedding service.
package catalog

import (
	"sort"
	"strings"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/similarity"
)

// knownMatchThreshold is the minimum label similarity for a known-question
// entry to claim a discovered question.
const knownMatchThreshold = 80.0

// ValueFunc produces an answer from the profile and the question context.
// Returning profile.ErrNoData signals "no data" uniformly.
type ValueFunc func(p *profile.Profile, q *schemas.Question) (any, error)

// Validator vetoes an entry match against the concrete question.
type Validator func(q *schemas.Question) bool

// KnownQuestion is one platform-authored entry.
type KnownQuestion struct {
	// Name is the canonical label; Aliases extend the match surface.
	Name    string
	Aliases []string

	// Kinds restricts the entry to widget kinds; empty allows any.
	Kinds []schemas.FieldKind

	// DataKey is a profile document path ("a.b[0].c" notation). Group-prefixed
	// keys (workExperiences./education./websites.) route through the
	// repeating-group index arithmetic instead of direct resolution.
	DataKey string

	// Value, when set, takes precedence over DataKey.
	Value ValueFunc

	Validate  Validator
	Policy    schemas.ActionPolicy
	Fallbacks []schemas.Locator

	// Deletable marks the owning repeating container as removable when the
	// profile has no data for its index.
	Deletable bool

	Notes string
}

// AllowsKind reports whether the entry accepts a widget kind.
func (k *KnownQuestion) AllowsKind(kind schemas.FieldKind) bool {
	if len(k.Kinds) == 0 {
		return true
	}
	for _, allowed := range k.Kinds {
		if allowed == kind {
			return true
		}
	}
	return false
}

// Group returns the repeating-group family of the entry's data key.
func (k *KnownQuestion) Group() schemas.GroupKey {
	switch {
	case strings.HasPrefix(k.DataKey, "workExperiences"):
		return schemas.GroupWork
	case strings.HasPrefix(k.DataKey, "education"):
		return schemas.GroupEducation
	case strings.HasPrefix(k.DataKey, "websites"):
		return schemas.GroupWebsites
	default:
		return schemas.GroupNone
	}
}

func (k *KnownQuestion) matchScore(label string) float64 {
	best := similarity.Score(label, k.Name)
	for _, alias := range k.Aliases {
		if s := similarity.Score(label, alias); s > best {
			best = s
		}
	}
	return best
}

// LabelDefinition maps an embedding key to its resolver: a static value, a
// profile path, or a function.
type LabelDefinition struct {
	Key     string
	Static  string
	DataKey string
	Value   ValueFunc
}

// Resolve evaluates the definition against the profile.
func (d *LabelDefinition) Resolve(p *profile.Profile, q *schemas.Question) (any, error) {
	switch {
	case d.Static != "":
		return d.Static, nil
	case d.Value != nil:
		return d.Value(p, q)
	case d.DataKey != "":
		return p.ResolveString(d.DataKey)
	default:
		return nil, profile.ErrNoData
	}
}

// Catalog bundles a platform's knowledge.
type Catalog struct {
	Platform string
	Known    []KnownQuestion
	Labels   map[string]*LabelDefinition
}

var registry = map[string]*Catalog{}

func register(c *Catalog) { registry[c.Platform] = c }

// For returns the catalog of a platform adapter.
func For(platform string) (*Catalog, bool) {
	c, ok := registry[platform]
	return c, ok
}

// Match finds the known-question entry best matching a question's label,
// subject to the kind filter, the similarity threshold and the entry's
// validator. Equal scores keep authoring order.
func (c *Catalog) Match(q *schemas.Question) (*KnownQuestion, bool) {
	var best *KnownQuestion
	bestScore := 0.0
	for i := range c.Known {
		entry := &c.Known[i]
		if !entry.AllowsKind(q.Kind) {
			continue
		}
		if entry.Validate != nil && !entry.Validate(q) {
			continue
		}
		if s := entry.matchScore(q.Label); s > bestScore {
			best, bestScore = entry, s
		}
	}
	if best == nil || bestScore < knownMatchThreshold {
		return nil, false
	}
	return best, true
}

// LabelKeys lists the embedding keys the platform defines, sorted for
// deterministic request payloads.
func (c *Catalog) LabelKeys() []string {
	keys := make([]string, 0, len(c.Labels))
	for k := range c.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveLabel evaluates one label definition; unknown keys are no data.
func (c *Catalog) ResolveLabel(key string, p *profile.Profile, q *schemas.Question) (any, error) {
	def, ok := c.Labels[key]
	if !ok {
		return nil, profile.ErrNoData
	}
	return def.Resolve(p, q)
}

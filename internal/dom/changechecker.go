package dom

import (
	"context"
	"hash"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// interactiveSelector matches the elements whose churn indicates a meaningful
// page change, as opposed to cosmetic re-renders.
const interactiveSelector = `input, textarea, select, button, [role="button"]`

// fingerprintAttrs are the identity-bearing attributes of an interactive
// element.
var fingerprintAttrs = []string{"aria-label", "id", "name", "placeholder", "role", "type"}

var checkerHasherPool = sync.Pool{
	New: func() interface{} { return fnv.New64a() },
}

// DomChangeChecker detects structural page changes by fingerprinting the
// interactive elements of consecutive HTML snapshots. It answers "did the
// form meaningfully change" where raw HTML comparison drowns in noise.
type DomChangeChecker struct {
	threshold float64
	lastHTML  string
	lastSet   map[string]int
}

// NewDomChangeChecker creates a checker. threshold is the churn ratio
// (added+removed)/(before+after) at or above which HasChanged reports true.
func NewDomChangeChecker(threshold float64) *DomChangeChecker {
	if threshold <= 0 {
		threshold = 0.15
	}
	return &DomChangeChecker{threshold: threshold}
}

// Snapshot captures the current page HTML as the comparison baseline.
func (c *DomChangeChecker) Snapshot(ctx context.Context) error {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return err
	}
	c.SetBaseline(html)
	return nil
}

// SetBaseline installs an HTML snapshot directly.
func (c *DomChangeChecker) SetBaseline(html string) {
	c.lastHTML = html
	c.lastSet = fingerprintSet(html)
}

// HasChanged captures a fresh snapshot and compares it against the baseline;
// the fresh snapshot becomes the new baseline.
func (c *DomChangeChecker) HasChanged(ctx context.Context) (bool, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return false, err
	}
	return c.CompareAndUpdate(html), nil
}

// CompareAndUpdate compares an HTML snapshot against the baseline and makes
// it the new baseline.
func (c *DomChangeChecker) CompareAndUpdate(html string) bool {
	next := fingerprintSet(html)
	prev := c.lastSet
	c.lastHTML = html
	c.lastSet = next

	if prev == nil {
		return false
	}
	return churnRatio(prev, next) >= c.threshold
}

// churnRatio is (added+removed)/(before+after) over fingerprint multisets.
func churnRatio(before, after map[string]int) float64 {
	var total, added, removed int
	for fp, n := range before {
		total += n
		if diff := n - after[fp]; diff > 0 {
			removed += diff
		}
	}
	for fp, n := range after {
		total += n
		if diff := n - before[fp]; diff > 0 {
			added += diff
		}
	}
	if total == 0 {
		return 0
	}
	return float64(added+removed) / float64(total)
}

// fingerprintSet extracts the interactive-element fingerprint multiset from
// an HTML snapshot.
func fingerprintSet(html string) map[string]int {
	set := make(map[string]int)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return set
	}
	doc.Find(interactiveSelector).Each(func(_ int, sel *goquery.Selection) {
		fp := elementFingerprint(sel)
		if fp != "" {
			set[fp]++
		}
	})
	return set
}

// elementFingerprint hashes the identity-bearing attributes of one element.
func elementFingerprint(sel *goquery.Selection) string {
	node := sel.Get(0)
	if node == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(strings.ToLower(node.Data))

	keys := append([]string(nil), fingerprintAttrs...)
	sort.Strings(keys)
	for _, key := range keys {
		if val, ok := sel.Attr(key); ok && val != "" {
			sb.WriteString("[" + key + "=" + val + "]")
		}
	}

	h := checkerHasherPool.Get().(hash.Hash64)
	defer func() {
		h.Reset()
		checkerHasherPool.Put(h)
	}()
	_, _ = h.Write([]byte(sb.String()))
	return strconv.FormatUint(h.Sum64(), 16)
}

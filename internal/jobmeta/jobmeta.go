// Package jobmeta captures job posting metadata from a page snapshot.
package jobmeta

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Meta is the metadata extracted from one posting page.
type Meta struct {
	Title       string
	Company     string
	Locations   []string
	PublishTime time.Time
	Description string
}

// selectors parameterize extraction for one platform.
type selectors struct {
	title       string
	company     string
	location    string
	posted      string
	description string
}

func selectorsFor(platform string) selectors {
	switch platform {
	case "workday":
		return selectors{
			title:       `[data-automation-id="jobPostingHeader"]`,
			company:     `[data-automation-id="jobPostingCompany"]`,
			location:    `[data-automation-id="locations"] dd`,
			posted:      `[data-automation-id="postedOn"] dd`,
			description: `[data-automation-id="jobPostingDescription"]`,
		}
	case "greenhouse":
		return selectors{
			title:       `.job__title h1`,
			company:     `.job__company`,
			location:    `.job__location`,
			posted:      `.job__posted`,
			description: `.job__description`,
		}
	case "lever":
		return selectors{
			title:       `.posting-headline h2`,
			company:     `.main-header-logo img`,
			location:    `.posting-categories .location`,
			description: `.section-wrapper .section:not(.last-section-apply)`,
		}
	default:
		return selectors{
			title:       `h1`,
			description: `main, body`,
		}
	}
}

// Extract parses the snapshot HTML with the platform's selectors. Missing
// fields stay zero; only a missing title is an error since nothing downstream
// can work without one.
func Extract(platform, html string) (*Meta, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	sel := selectorsFor(platform)

	meta := &Meta{
		Title:       text(doc, sel.title),
		Company:     text(doc, sel.company),
		Description: text(doc, sel.description),
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("no job title under %q", sel.title)
	}
	if meta.Company == "" && platform == "lever" {
		meta.Company = attr(doc, sel.company, "alt")
	}

	doc.Find(sel.location).Each(func(_ int, s *goquery.Selection) {
		for _, loc := range strings.Split(s.Text(), ";") {
			if loc = strings.TrimSpace(loc); loc != "" {
				meta.Locations = append(meta.Locations, loc)
			}
		}
	})

	if posted := text(doc, sel.posted); posted != "" {
		meta.PublishTime = parsePosted(posted, time.Now())
	}
	return meta, nil
}

// Fingerprint derives a stable identity for a posting from its normalized
// title, company and locations. Re-crawling the same posting must yield the
// same value regardless of cosmetic page changes.
func Fingerprint(title, company string, locations []string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(norm(title)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(norm(company)))
	for _, loc := range locations {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(norm(loc)))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func norm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// parsePosted turns relative posted strings ("Posted 3 Days Ago") into an
// absolute time, falling back to common date layouts.
func parsePosted(s string, now time.Time) time.Time {
	lower := strings.ToLower(strings.TrimSpace(s))
	lower = strings.TrimPrefix(lower, "posted ")

	var n int
	var unit string
	if _, err := fmt.Sscanf(lower, "%d %s", &n, &unit); err == nil {
		switch {
		case strings.HasPrefix(unit, "day"):
			return now.AddDate(0, 0, -n)
		case strings.HasPrefix(unit, "hour"):
			return now.Add(-time.Duration(n) * time.Hour)
		case strings.HasPrefix(unit, "month"):
			return now.AddDate(0, -n, 0)
		}
	}
	if strings.HasPrefix(lower, "today") || strings.HasPrefix(lower, "just") {
		return now
	}
	if strings.HasPrefix(lower, "yesterday") {
		return now.AddDate(0, 0, -1)
	}

	for _, layout := range []string{"2006-01-02", "January 2, 2006", "Jan 2, 2006", "01/02/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t
		}
	}
	return time.Time{}
}

func text(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func attr(doc *goquery.Document, selector, name string) string {
	if selector == "" {
		return ""
	}
	v, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

// Package platform maps job-posting hosts to ATS adapters and wires one
// adapter per tab from the shared engine components.
package platform

import (
	"net/url"
	"strings"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// hostEntry binds host patterns to a platform name. A pattern matches when it
// equals the host or is a dot-separated suffix of it.
type hostEntry struct {
	patterns []string
	platform string
	ptype    schemas.PlatformType
}

// hostOrder is consulted in order; the first match wins. Order matters
// because embedded boards (a Workday posting framed by a job board) must
// resolve to the ATS, not the board.
var hostOrder = []hostEntry{
	{
		patterns: []string{"myworkdayjobs.com", "myworkdaysite.com"},
		platform: "workday",
		ptype:    schemas.PlatformATS,
	},
	{
		patterns: []string{"boards.greenhouse.io", "job-boards.greenhouse.io", "greenhouse.io"},
		platform: "greenhouse",
		ptype:    schemas.PlatformATS,
	},
	{
		patterns: []string{"jobs.lever.co", "lever.co"},
		platform: "lever",
		ptype:    schemas.PlatformATS,
	},
	{
		patterns: []string{"linkedin.com", "indeed.com"},
		platform: "jobboard",
		ptype:    schemas.PlatformJobBoard,
	},
}

// Supported lists the platform names with a full adapter.
func Supported() []string { return []string{"workday", "greenhouse", "lever"} }

// PlatformFor resolves a page URL to its platform descriptor. ok is false for
// hosts no entry covers.
func PlatformFor(rawURL string) (schemas.PlatformDescriptor, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return schemas.PlatformDescriptor{}, false
	}
	host := strings.ToLower(u.Hostname())

	for _, entry := range hostOrder {
		for _, pattern := range entry.patterns {
			if hostMatches(host, pattern) {
				return schemas.PlatformDescriptor{Type: entry.ptype, Name: entry.platform}, true
			}
		}
	}
	return schemas.PlatformDescriptor{}, false
}

// IsSupported reports whether a descriptor has a full adapter; job boards
// only host postings and cannot be driven.
func IsSupported(desc schemas.PlatformDescriptor) bool {
	if desc.Type != schemas.PlatformATS {
		return false
	}
	for _, name := range Supported() {
		if name == desc.Name {
			return true
		}
	}
	return false
}

func hostMatches(host, pattern string) bool {
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
)

// verificationKind selects what the mail service extracts from the most
// recent verification email.
type verificationKind string

const (
	verifyOTP      verificationKind = "otp"
	verifyPasscode verificationKind = "passcode"
	verifyURL      verificationKind = "url"
)

func (k verificationKind) action() schemas.Action {
	switch k {
	case verifyOTP:
		return schemas.ActionFetchRecentVerificationOTP
	case verifyPasscode:
		return schemas.ActionFetchRecentPasscode
	default:
		return schemas.ActionFetchRecentURL
	}
}

// URLOpener visits a verification link in a driven hidden tab. Used as the
// fallback when the link rejects a plain HTTP fetch.
type URLOpener interface {
	OpenHidden(ctx context.Context, url string) error
}

// VerificationClient fetches OTPs, passcodes and confirmation links from the
// mail service, rejecting anything older than the configured window.
type VerificationClient struct {
	log    *zap.Logger
	http   *httpClient
	ep     config.ServiceEndpoint
	maxAge time.Duration
	opener URLOpener
}

// NewVerificationClient builds the client. opener may be nil; URL resolution
// then has no hidden-tab fallback.
func NewVerificationClient(log *zap.Logger, http *httpClient, ep config.ServiceEndpoint, maxAge time.Duration, opener URLOpener) *VerificationClient {
	return &VerificationClient{
		log:    log.Named("verification"),
		http:   http,
		ep:     ep,
		maxAge: maxAge,
		opener: opener,
	}
}

type verificationPayload struct {
	Value      string    `json:"value"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// RecentOTP returns the newest one-time code within the freshness window.
func (c *VerificationClient) RecentOTP(ctx context.Context) (string, error) {
	return c.fetch(ctx, verifyOTP)
}

// RecentPasscode returns the newest emailed passcode.
func (c *VerificationClient) RecentPasscode(ctx context.Context) (string, error) {
	return c.fetch(ctx, verifyPasscode)
}

// RecentURL returns the newest verification link.
func (c *VerificationClient) RecentURL(ctx context.Context) (string, error) {
	return c.fetch(ctx, verifyURL)
}

func (c *VerificationClient) fetch(ctx context.Context, kind verificationKind) (string, error) {
	req := map[string]any{
		"kind":          kind,
		"maxAgeSeconds": int(c.maxAge.Seconds()),
	}
	var out verificationPayload
	if err := c.http.postJSON(ctx, c.ep, kind.action(), req, &out); err != nil {
		return "", err
	}
	if out.Value == "" {
		return "", fmt.Errorf("no recent %s found", kind)
	}
	if !out.ReceivedAt.IsZero() && time.Since(out.ReceivedAt) > c.maxAge {
		return "", fmt.Errorf("%s is stale (received %s)", kind, out.ReceivedAt.Format(time.RFC3339))
	}
	return out.Value, nil
}

// ResolveURL confirms a verification link. A plain GET is tried first since
// most links are single-use redirects; links guarded by browser checks fall
// back to a hidden driven tab.
func (c *VerificationClient) ResolveURL(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.client.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 400 {
			return nil
		}
		err = fmt.Errorf("verification link returned HTTP %d", resp.StatusCode)
	}

	if c.opener == nil {
		return err
	}
	c.log.Debug("falling back to hidden tab for verification link", zap.Error(err))
	return c.opener.OpenHidden(ctx, url)
}

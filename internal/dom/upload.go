package dom

import (
	"context"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// UploadOptions tunes Upload.
type UploadOptions struct {
	// StatusSelector scopes the acceptance check to a status region. Empty
	// means the whole document.
	StatusSelector string
	// SpinnerSelector identifies in-progress indicators that must clear.
	SpinnerSelector string
	// PerFileTimeout bounds the acceptance wait for each file.
	PerFileTimeout time.Duration
}

// UploadResult partitions the attempted files.
type UploadResult struct {
	Success  bool
	Uploaded []string
	Failed   []string
}

const defaultSpinnerSelector = `[class*="spinner" i], [class*="loading" i], [role="progressbar"]`

// Upload assigns local files to a file input and waits for each to be
// accepted. Acceptance means the file name appears in the status region or
// every spinner has cleared before the per-file timeout.
func (d *Driver) Upload(ctx context.Context, input schemas.Locator, paths []string, opts UploadOptions) (UploadResult, error) {
	resolved, err := d.Resolve(ctx, input, ResolveOptions{
		Validate: `el => el.tagName === 'INPUT' && el.type === 'file'`,
	})
	if err != nil {
		return UploadResult{}, err
	}
	sel := resolved.CSS()

	if err := chromedp.Run(ctx, chromedp.SetUploadFiles(sel, paths, chromedp.ByQuery)); err != nil {
		return UploadResult{}, err
	}

	timeout := opts.PerFileTimeout
	if timeout <= 0 {
		timeout = d.actionTimeout(0)
	}
	spinner := opts.SpinnerSelector
	if spinner == "" {
		spinner = defaultSpinnerSelector
	}

	result := UploadResult{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name := filepath.Base(path)
		ok, err := d.waitAccepted(ctx, opts.StatusSelector, spinner, name, timeout)
		if err != nil {
			return result, err
		}
		if ok {
			result.Uploaded = append(result.Uploaded, path)
		} else {
			d.log.Warn("upload not accepted before timeout", zap.String("file", name))
			result.Failed = append(result.Failed, path)
		}
	}

	result.Success = len(result.Failed) == 0
	if !result.Success {
		return result, ErrUploadIncomplete
	}
	return result, nil
}

// waitAccepted polls for the file name rendering in the status region, or for
// all spinners clearing, whichever comes first.
func (d *Driver) waitAccepted(ctx context.Context, statusSel, spinnerSel, name string, timeout time.Duration) (bool, error) {
	scope := statusSel
	if scope == "" {
		scope = "body"
	}
	expr := textContainsJS(scope+" *", NormalizeChip(name)) +
		" || " + visibleCountJS(spinnerSel) + " === 0"
	return d.poll(ctx, expr, timeout)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/jobmeta"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/observability"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/platform"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/session"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/store"
)

func newApplyCmd() *cobra.Command {
	var (
		jobURL string
		jobID  string
		force  bool
	)

	applyCmd := &cobra.Command{
		Use:     "apply",
		Aliases: []string{"run"},
		Short:   "Run one job application end to end",
		Long:  `Opens the job posting in a driven browser tab, extracts the posting metadata, and runs the multi-page application flow to a terminal result. Jobs already applied to are skipped unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobURL == "" {
				return fmt.Errorf("a --url must be provided")
			}
			ctx := cmd.Context()
			logger := observability.GetLogger()

			desc, ok := platform.PlatformFor(jobURL)
			if !ok || !platform.IsSupported(desc) {
				return fmt.Errorf("no supported platform for %s", jobURL)
			}
			logger.Info("platform detected", zap.String("platform", desc.Name))

			comps, err := NewComponents(ctx, appCfg)
			if err != nil {
				return err
			}
			defer comps.Shutdown()

			tab, err := comps.OpenTab(desc)
			if err != nil {
				return fmt.Errorf("failed to open tab: %w", err)
			}
			if err := tab.Navigate(jobURL); err != nil {
				return fmt.Errorf("failed to load %s: %w", jobURL, err)
			}

			job, err := describeJob(tab, desc.Name, jobID)
			if err != nil {
				return err
			}
			logger.Info("job described",
				zap.String("jobId", job.ID),
				zap.String("title", job.Title),
				zap.String("company", job.Company))

			if !force {
				prev, err := comps.Store.GetExecutionResult(ctx,
					schemas.JobKey{ID: job.ID, Fingerprint: job.Fingerprint})
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
				if prev == schemas.ExecutionApplied {
					logger.Info("already applied, skipping", zap.String("jobId", job.ID))
					return nil
				}
			}

			if err := tab.StartExecution(ctx, job, schemas.ExecutionPayload{Mode: "single"}); err != nil {
				return err
			}
			result, err := waitForResult(ctx, tab)
			if err != nil {
				return err
			}

			fmt.Println(string(result))
			if result == schemas.ExecutionFailed {
				return fmt.Errorf("application failed for job %s", job.ID)
			}
			return nil
		},
	}

	applyCmd.Flags().StringVar(&jobURL, "url", "", "The job posting URL (required)")
	applyCmd.Flags().StringVar(&jobID, "job-id", "", "External job id; defaults to the posting fingerprint")
	applyCmd.Flags().BoolVar(&force, "force", false, "Apply even when a previous run already applied")
	_ = applyCmd.MarkFlagRequired("url")

	return applyCmd
}

// describeJob captures the posting metadata from the rendered page.
func describeJob(tab *session.Tab, platformName, jobID string) (*schemas.JobData, error) {
	var html string
	if err := chromedp.Run(tab.Context(),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("failed to read posting page: %w", err)
	}

	meta, err := jobmeta.Extract(platformName, html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract posting metadata: %w", err)
	}

	fingerprint := jobmeta.Fingerprint(meta.Title, meta.Company, meta.Locations)
	if jobID == "" {
		jobID = fingerprint
	}
	return &schemas.JobData{
		ID:          jobID,
		Fingerprint: fingerprint,
		Title:       meta.Title,
		Company:     meta.Company,
		Locations:   meta.Locations,
		PublishTime: meta.PublishTime,
		Description: meta.Description,
	}, nil
}

// waitForResult polls the tab session until the execution reaches a terminal
// result. Resumes after reloads happen inside the tab, so pending stretches
// are expected.
func waitForResult(ctx context.Context, tab *session.Tab) (schemas.ExecutionResult, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			tab.StopExecution("interrupted")
			return schemas.ExecutionAborted, ctx.Err()
		case <-ticker.C:
			state := tab.Session()
			if state != nil && !state.Running {
				return state.ExecutionResult, nil
			}
		}
	}
}

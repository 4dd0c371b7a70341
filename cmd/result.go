package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/observability"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/store"
)

func newResultCmd() *cobra.Command {
	var (
		jobID       string
		fingerprint string
	)

	resultCmd := &cobra.Command{
		Use:   "result",
		Short: "Look up the recorded result for a job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("a --job-id must be provided")
			}
			ctx := cmd.Context()
			logger := observability.GetLogger()

			pool, err := pgxpool.New(ctx, appCfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			st, err := store.New(ctx, pool, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}

			result, err := st.GetExecutionResult(ctx, schemas.JobKey{ID: jobID, Fingerprint: fingerprint})
			if err != nil {
				return err
			}

			out, err := json.Marshal(map[string]string{
				"id":          jobID,
				"fingerprint": fingerprint,
				"result":      string(result),
			})
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	resultCmd.Flags().StringVar(&jobID, "job-id", "", "The job id to look up (required)")
	resultCmd.Flags().StringVar(&fingerprint, "fingerprint", "", "The posting fingerprint")
	_ = resultCmd.MarkFlagRequired("job-id")

	return resultCmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/internal/observability"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/services"
)

func newVerifyCmd() *cobra.Command {
	var otp bool

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Resolve the newest email verification link",
		Long:  `Fetches the newest verification artifact from the mail service. By default the confirmation link is fetched and resolved; with --otp the one-time code is printed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			broker := services.NewBroker(logger, appCfg.Services, appCfg.Resolver.EmbeddingMinScore, nil)
			verify := services.NewVerificationClient(logger, broker.HTTP(),
				appCfg.Services.Verification, appCfg.Services.VerificationMaxAge, nil)

			if otp {
				code, err := verify.RecentOTP(ctx)
				if err != nil {
					return err
				}
				fmt.Println(code)
				return nil
			}

			link, err := verify.RecentURL(ctx)
			if err != nil {
				return err
			}
			if err := verify.ResolveURL(ctx, link); err != nil {
				return fmt.Errorf("failed to resolve verification link: %w", err)
			}
			logger.Info("verification link resolved", zap.String("url", link))
			return nil
		},
	}

	verifyCmd.Flags().BoolVar(&otp, "otp", false, "Print the newest one-time code instead of resolving the link")

	return verifyCmd
}

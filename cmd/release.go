package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/handoff/internal/logging"
)

func newReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release <issue-number>",
		Short: "Remove the doing label from an issue",
		Long: `Remove the doing label from an issue so it can be claimed again.

Use this after a partial claim, or when the agent gave up on an issue. An issue
whose latest comment still contains the handoff marker stays ineligible until
someone comments after it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil || number <= 0 {
				return &UsageError{Err: fmt.Errorf("invalid issue number: %s", args[0])}
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			service, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if err := service.RemoveLabel(cmd.Context(), number, cfg.Automation.DoingLabel); err != nil {
				return err
			}

			logging.Info("released issue", "issue_number", number, "label", cfg.Automation.DoingLabel)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed label '%s' from issue #%d\n", cfg.Automation.DoingLabel, number)
			return nil
		},
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Label colors used when the tracker needs one.
const (
	taskLabelColor  = "0e8a16"
	doingLabelColor = "fbca04"
)

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "Create the task and doing labels",
		Long: `Create the labels used by handoff in the configured repository if they
don't already exist:
- the task label (TASK_LABEL, default 'ai task')
- the doing label (DOING_LABEL, default 'ai doing')

JIRA labels need no setup and are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			service, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			labels := []struct {
				name, color, description string
			}{
				{cfg.Automation.TaskLabel, taskLabelColor, "Queued for automated handoff"},
				{cfg.Automation.DoingLabel, doingLabelColor, "Claimed by automation, in progress"},
			}

			for _, label := range labels {
				created, err := service.EnsureLabel(cmd.Context(), label.name, label.color, label.description)
				if err != nil {
					return fmt.Errorf("failed to ensure label '%s': %w", label.name, err)
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Created label '%s'\n", label.name)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Label '%s' already exists\n", label.name)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Repository %s is ready\n", cfg.RepositoryName())
			return nil
		},
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/risk"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current risk level, streaks and market regime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, cleanup, err := opts.openController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			state := ctrl.State()
			out := cmd.OutOrStdout()

			if asJSON {
				data, err := risk.EncodeState(&state)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			renderState(out, state)
			renderLadder(out, state.CurrentLevel)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw state document")
	return cmd
}

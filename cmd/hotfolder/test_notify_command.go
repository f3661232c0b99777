package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hotfolder/internal/daemon"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			sent, message, err := daemon.SendTestNotification(cmd.Context(), ctx.configValue())
			if err != nil {
				if message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), message)
				}
				return err
			}
			switch {
			case message != "":
				fmt.Fprintln(cmd.OutOrStdout(), message)
			case sent:
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
			}
			return nil
		},
	}
}

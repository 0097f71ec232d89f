package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sapliy/status-relay/internal/notification"
)

var previewFlags notificationFlags

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the subject and HTML of a status notification email",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := previewFlags.build()
		if err != nil {
			return err
		}

		html, err := notification.RenderStatusEmail(n)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "To: %s\n", n.Email)
		fmt.Fprintf(out, "Subject: %s\n\n", notification.StatusSubject(n))
		fmt.Fprintln(out, html)
		return nil
	},
}

func init() {
	previewFlags.register(previewCmd)
	rootCmd.AddCommand(previewCmd)
}

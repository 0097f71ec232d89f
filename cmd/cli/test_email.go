package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sapliy/status-relay/internal/notification"
)

var testEmailTo string

var testEmailCmd = &cobra.Command{
	Use:   "test-email",
	Short: "Send one test email through Resend",
	RunE: func(cmd *cobra.Command, args []string) error {
		to := testEmailTo
		if to == "" {
			to = viper.GetString("contact_email")
		}
		if to == "" {
			return fmt.Errorf("recipient is not set (--to or CONTACT_EMAIL)")
		}

		svc, err := notification.NewEmailService(notification.EmailConfig{
			APIKey: viper.GetString("resend_api_key"),
			From:   viper.GetString("from_email"),
		})
		if err != nil {
			return fmt.Errorf("RESEND_API_KEY is not set: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		id, err := svc.Send(ctx, notification.Message{
			To:      []string{to},
			Subject: "Test Email from the status relay",
			HTML:    "<p>This is a test email to verify Resend integration.</p>",
		})
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Email sent successfully! ID: %s\n", id)
		return nil
	},
}

func init() {
	testEmailCmd.Flags().StringVar(&testEmailTo, "to", "", "recipient address (default CONTACT_EMAIL)")
	rootCmd.AddCommand(testEmailCmd)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sapliy/status-relay/pkg/client"
	"github.com/sapliy/status-relay/pkg/messaging"
)

var (
	sendFlags notificationFlags
	sendVia   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a status notification to the relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := sendFlags.build()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		switch sendVia {
		case "http":
			ack, err := client.New(viper.GetString("relay_url")).SubmitStatus(ctx, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ack.Status, ack.Message)
			if ack.TaskID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Task ID: %s\n", ack.TaskID)
			}
			return nil
		case "amqp":
			return publishAMQP(ctx, cmd, n)
		default:
			return fmt.Errorf("unknown transport %q (use http or amqp)", sendVia)
		}
	},
}

func publishAMQP(ctx context.Context, cmd *cobra.Command, n any) error {
	url := viper.GetString("rabbitmq_url")
	if url == "" {
		return fmt.Errorf("rabbitmq url is not set (--rabbitmq-url or RABBITMQ_URL)")
	}
	queue := viper.GetString("rabbitmq_queue")

	rmq, err := messaging.NewRabbitMQClient(messaging.DefaultConfig(url))
	if err != nil {
		return err
	}
	defer rmq.Close()

	if _, err := rmq.DeclareQueue(queue); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := rmq.Publish(ctx, queue, body); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Published to queue %s\n", queue)
	return nil
}

func init() {
	sendFlags.register(sendCmd)
	sendCmd.Flags().StringVar(&sendVia, "via", "http", "transport: http or amqp")
	sendCmd.Flags().String("rabbitmq-url", "", "RabbitMQ URL used with --via amqp")
	sendCmd.Flags().String("rabbitmq-queue", "status.notifications", "queue used with --via amqp")
	cobra.CheckErr(viper.BindPFlag("rabbitmq_url", sendCmd.Flags().Lookup("rabbitmq-url")))
	cobra.CheckErr(viper.BindPFlag("rabbitmq_queue", sendCmd.Flags().Lookup("rabbitmq-queue")))
	rootCmd.AddCommand(sendCmd)
}

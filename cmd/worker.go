package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/edupanel/apiserver/config"
	"github.com/edupanel/apiserver/internal/mailer"
	"github.com/edupanel/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

// workerCmd runs the mailer worker: it consumes notification events
// and sends the corresponding emails.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the notification mailer worker",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		queue, err := newWorkerQueue(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to broker: %v\n", err)
			os.Exit(1)
		}
		defer queue.Close()

		worker := mailer.NewWorker(queue, cfg.Notify.Channel, mailer.New(cfg.SMTP))
		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func newWorkerQueue(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.MQ.Backend {
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}

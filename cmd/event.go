package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/account-admin/internal/core/events"
	"github.com/frahmantamala/account-admin/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect account events and the audit log pipeline`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test account event through the audit logger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List account event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.AccountEventTypes {
			fmt.Println(t)
		}
	},
}

var (
	eventActor   string
	eventUserIDs []int64
)

func publishTestEvent(ctx context.Context, eventType string) error {
	if !slices.Contains(events.AccountEventTypes, eventType) {
		return fmt.Errorf("unknown event type %q", eventType)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	bus.SubscribeAudit(lg.With("component", "audit"))

	ev := events.NewAccountEvent(eventType, 0, eventActor, eventUserIDs, map[string]interface{}{
		"source": "cli",
	})
	lg.Info("publishing test event", "event_type", eventType, "event_id", ev.EventID())
	if err := bus.Publish(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	bus.Wait()
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventActor, "actor", "cli", "actor name recorded on the event")
	publishEventCmd.Flags().Int64SliceVar(&eventUserIDs, "user", nil, "affected user ids")

	eventCmd.AddCommand(publishEventCmd)
	eventCmd.AddCommand(listEventsCmd)
	rootCmd.AddCommand(eventCmd)
}

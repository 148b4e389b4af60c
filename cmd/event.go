package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/archival-system/internal/core/events"
	"github.com/frahmantamala/archival-system/internal/task"
	"github.com/frahmantamala/archival-system/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish lifecycle events to a local bus to check handler wiring`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a task lifecycle event (task.created, task.updated, task.approved, task.archived) through the registered handlers`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventTaskID     string
	eventDepartment string
	eventFrom       string
	eventTo         string
)

func publishTestEvent(eventType string) error {
	log := logger.LoggerWrapper()

	known := false
	for _, t := range events.TaskEvents {
		if t == eventType {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown task event %q, expected one of %v", eventType, events.TaskEvents)
	}

	bus := events.NewEventBus(log)
	task.NewEventHandler(log).RegisterEventHandlers(bus)

	event := events.NewTaskEvent(eventType, eventTaskID, "cli", eventDepartment, eventFrom, eventTo)
	log.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	if err := bus.PublishSync(context.Background(), event); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	log.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventTaskID, "task", "cli-task", "task id carried by the event")
	publishEventCmd.Flags().StringVar(&eventDepartment, "department", "CSE", "department carried by the event")
	publishEventCmd.Flags().StringVar(&eventFrom, "from", "", "source status")
	publishEventCmd.Flags().StringVar(&eventTo, "to", "Not Started", "target status")

	eventCmd.AddCommand(publishEventCmd)
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/dukex/leadion/pkg/channels/gochannel"
	"github.com/dukex/leadion/pkg/channels/kafka"
	"github.com/dukex/leadion/pkg/eventbus"
)

// NewEventBus creates an event bus instance based on the provider. The
// gochannel provider keeps everything in-process and is the default for
// single-binary deployments; kafka splits the API and runner across
// processes. serviceName must be unique per binary: it names the Kafka
// consumer group, and services sharing a group would compete for messages
// instead of each receiving the full stream.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create GoChannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

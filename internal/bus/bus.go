package bus

import (
	"fmt"

	"github.com/opengov-pk/shafaf/internal/domain"
)

// New creates a new event bus based on configuration.
// The demo profile uses the in-process ChannelBus. Production
// deployments use NATS for cross-instance delivery.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

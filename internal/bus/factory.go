package bus

import (
	"fmt"
	"strings"

	"github.com/rankstack/rank-search/internal/config"
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

// NewBus creates a Bus instance based on the configuration.
func NewBus(cfg config.BusConfig) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(), nil

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, apperrors.New(apperrors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "rank-search"
		}

		return NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "rank-search-bus",
		})

	default:
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}
}

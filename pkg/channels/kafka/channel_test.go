package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
)

func TestConsumerGroup_DistinctPerService(t *testing.T) {
	api := consumerGroup("leadion-api")
	runner := consumerGroup("leadion-runner")

	assert.Equal(t, "cg-leadion-api", api)
	assert.Equal(t, "cg-leadion-runner", runner)

	// The API and the runner must never share a group, or they would split
	// the event stream between them.
	assert.NotEqual(t, api, runner)
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	_, _, err := CreateChannel(watermill.NopLogger{}, "leadion-api")
	assert.Error(t, err)
}

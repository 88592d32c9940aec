package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/donorjournal-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "journal-dev"}

	assert.Equal(t, "projects/journal-dev/topics/journal-activity-events", c.topicResourceName("journal-activity-events"))
	assert.Equal(t, "projects/other/topics/t", c.topicResourceName("projects/other/topics/t"))
	assert.Empty(t, c.topicResourceName("  "))
	assert.Empty(t, (&Client{}).topicResourceName("t"))

	var nilClient *Client
	assert.Empty(t, nilClient.topicResourceName("t"))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{ActivityTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("t"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}

func TestActivityPublisherNilSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.ActivityPublisher())
	assert.Nil(t, (&Client{projectID: "journal-dev"}).ActivityPublisher())
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{ProjectID: "journal-dev"}))
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/sa.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/secrets/sa.json"}), 1)
}

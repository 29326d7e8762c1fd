package svc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishNotifier(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(context.Background(), TopicMetadataFetched)
	require.NoError(t, err)

	infoHash, metadata := buildTestTorrent(t, "notify.me", 64)
	NewPublishNotifier(pubSub).Notify(infoHash, metadata)

	select {
	case msg := <-messages:
		fetched := MetadataFetched{}
		require.NoError(t, json.Unmarshal(msg.Payload, &fetched))
		assert.Equal(t, hex.EncodeToString(infoHash), fetched.InfoHash)
		assert.Equal(t, metadata, fetched.Metadata)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
}

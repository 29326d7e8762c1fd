package svc

import (
	"encoding/hex"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v2/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/logx"
)

const TopicMetadataFetched = "metadata.fetched"

type MetadataFetched struct {
	InfoHash string `json:"info_hash"`
	Metadata []byte `json:"metadata"`
}

var _ DownloadHelper = (*PublishNotifier)(nil)

// PublishNotifier forwards each verified payload onto a message bus for
// the download helper to pick up. Publish failures are logged and
// swallowed; the save already happened.
type PublishNotifier struct {
	publisher message.Publisher
}

func NewPublishNotifier(publisher message.Publisher) *PublishNotifier {
	return &PublishNotifier{publisher: publisher}
}

func NewAMQPNotifier(url string) (*PublishNotifier, error) {
	amqpConfig := amqp.NewDurablePubSubConfig(url, nil)
	publisher, err := amqp.NewPublisher(amqpConfig, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewPublishNotifier(publisher), nil
}

func (n *PublishNotifier) Notify(infoHash []byte, metadata []byte) {
	raw, err := json.Marshal(&MetadataFetched{
		InfoHash: hex.EncodeToString(infoHash),
		Metadata: metadata,
	})
	if err != nil {
		logx.Errorf("Failed to marshal notification: %+v", err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)
	err = n.publisher.Publish(TopicMetadataFetched, msg)
	if err != nil {
		logx.Errorf("Failed to publish metadata notification: %+v", err)
	}
}

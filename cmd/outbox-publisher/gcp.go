package main

import (
	"context"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublishers keeps one ordered publisher per topic for the life of
// the process.
type topicPublishers struct {
	client pubSubClient

	mu      sync.Mutex
	byTopic map[string]*gcppubsub.Publisher
}

func newTopicPublishers(client pubSubClient) *topicPublishers {
	return &topicPublishers{client: client, byTopic: map[string]*gcppubsub.Publisher{}}
}

func (t *topicPublishers) forTopic(topic string) publisher {
	t.mu.Lock()
	defer t.mu.Unlock()
	pub, ok := t.byTopic[topic]
	if !ok {
		pub = t.client.Publisher(topic)
		if pub == nil {
			return nil
		}
		pub.EnableMessageOrdering = true
		t.byTopic[topic] = pub
	}
	return &orderedPublisher{pub: pub}
}

// stop flushes and stops every publisher. Safe on a nil receiver.
func (t *topicPublishers) stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for topic, pub := range t.byTopic {
		pub.Stop()
		delete(t.byTopic, topic)
	}
}

type orderedPublisher struct {
	pub *gcppubsub.Publisher
}

func (p *orderedPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &orderedResult{res: p.pub.Publish(ctx, msg), pub: p.pub, key: msg.OrderingKey}
}

type orderedResult struct {
	res *gcppubsub.PublishResult
	pub *gcppubsub.Publisher
	key string
}

// Get resumes the ordering key after a failure. Pub/Sub pauses a key on
// error, and the row is retried on a later batch.
func (r *orderedResult) Get(ctx context.Context) (string, error) {
	id, err := r.res.Get(ctx)
	if err != nil && r.key != "" {
		r.pub.ResumePublish(r.key)
	}
	return id, err
}

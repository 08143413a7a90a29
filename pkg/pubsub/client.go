// Package pubsub wraps the Pub/Sub v2 client with the storefront's topic and
// subscription names.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub topic name is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	topics    []string
	feeds     []string
}

// NewClient connects and fails fast when a configured topic is missing.
// Topics are provisioned out of band; the client never creates them.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	topics := topicNames(cfg)
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	raw, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: raw, projectID: projectID, topics: topics, feeds: cfg.FeedSubscriptions}
	if err := c.checkTopics(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", topics), "pubsub client initialized")
	}
	return c, nil
}

// clientOptions prefers inline JSON over a key file. With neither set the
// library falls back to application default credentials or the emulator.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func (c *Client) checkTopics(ctx context.Context) error {
	var errs error
	for _, name := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
			Topic: resourceName(kindTopic, c.projectID, name),
		})
		switch {
		case err == nil:
		case status.Code(err) == codes.NotFound:
			errs = multierr.Append(errs, fmt.Errorf("topic %q does not exist", name))
		default:
			errs = multierr.Append(errs, fmt.Errorf("checking topic %q: %w", name, err))
		}
	}
	return errs
}

// topicNames returns the configured topics, trimmed and deduplicated.
func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	seen := map[string]bool{}
	for _, name := range []string{cfg.OrdersTopic, cfg.PaymentsTopic, cfg.WalletTopic, cfg.NotificationTopic} {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Subscription accepts a short ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(kindSubscription, c.projectID, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// FeedSubscriptions returns one subscriber per configured feed.
func (c *Client) FeedSubscriptions() []*pubsub.Subscriber {
	if c == nil {
		return nil
	}
	var subs []*pubsub.Subscriber
	for _, name := range c.feeds {
		if sub := c.Subscription(name); sub != nil {
			subs = append(subs, sub)
		}
	}
	return subs
}

// Publisher accepts a short ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(kindTopic, c.projectID, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.checkTopics(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands name to projects/<project>/<kind>/<name>. Names that
// are already fully qualified pass through.
func resourceName(kind, projectID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}

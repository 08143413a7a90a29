package redis

import "strings"

// Every key lives under sf:<kind>:...
const keyNamespace = "sf"

func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return buildKey("rate_limit", scope)
}

func (c *Client) LockKey(name string) string {
	return buildKey("lock", name)
}

// EventKey marks eventID as seen by consumer.
func (c *Client) EventKey(consumer, eventID string) string {
	return buildKey("event", consumer, eventID)
}

// buildKey trims parts and drops empty ones.
func buildKey(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

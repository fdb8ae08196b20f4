package model

import (
	"strings"
	"time"
)

const tagRefPrefix = "refs/tags/"

// WebhookEvent represents a push event received from GitHub
type WebhookEvent struct {
	ID         string    // Retrieved from X-GitHub-Delivery header
	Owner      string    // Repository owner
	Repo       string    // Repository name
	Ref        string    // Pushed ref, e.g. refs/tags/v1.2.3
	After      string    // Commit SHA the ref points at after the push
	Deleted    bool      // True when the push deletes the ref
	Sender     string    // Sender username
	ReceivedAt time.Time // Time when the event was received
}

// IsTagPush reports whether the push created or moved a tag
func (e *WebhookEvent) IsTagPush() bool {
	return strings.HasPrefix(e.Ref, tagRefPrefix) && !e.Deleted
}

// TagName returns the tag name for tag refs, or "" otherwise
func (e *WebhookEvent) TagName() string {
	if !strings.HasPrefix(e.Ref, tagRefPrefix) {
		return ""
	}
	return strings.TrimPrefix(e.Ref, tagRefPrefix)
}

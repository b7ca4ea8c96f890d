package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/perarneng/autoboard/pkg/googleauth"
	"github.com/perarneng/autoboard/pkg/interfaces"
)

// Scopes are the Gmail scopes the watcher needs: read plus label changes.
var Scopes = []string{gmail.GmailModifyScope}

var errNotConnected = errors.New("gmail service not connected")

type Client struct {
	service        *gmail.Service
	userID         string
	auth           googleauth.Options
	processedLabel string
	retryDelay     time.Duration

	mu      sync.Mutex
	labelID string
}

// NewClient returns a mailbox client. Messages handled by the watcher get
// processedLabel attached.
func NewClient(auth googleauth.Options, processedLabel string) interfaces.MailboxClient {
	return &Client{
		userID:         "me",
		auth:           auth,
		processedLabel: processedLabel,
		retryDelay:     2 * time.Second,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	if c.service != nil {
		return nil
	}
	httpClient, err := googleauth.HTTPClient(ctx, c.auth)
	if err != nil {
		return err
	}
	return c.connectWith(ctx, option.WithHTTPClient(httpClient))
}

func (c *Client) connectWith(ctx context.Context, opts ...option.ClientOption) error {
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("unable to retrieve Gmail client: %w", err)
	}
	c.service = srv
	return nil
}

// ListMessages returns up to maxResults message stubs matching a Gmail
// search query.
func (c *Client) ListMessages(ctx context.Context, query string, maxResults int64) ([]*gmail.Message, error) {
	if c.service == nil {
		return nil, errNotConnected
	}

	var messages []*gmail.Message
	pageToken := ""
	remaining := maxResults

	for remaining > 0 {
		call := c.service.Users.Messages.List(c.userID).Q(query)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		pageSize := remaining
		if pageSize > 500 {
			pageSize = 500
		}
		call = call.MaxResults(pageSize)

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve messages: %w", err)
		}

		messages = append(messages, resp.Messages...)
		remaining -= int64(len(resp.Messages))

		if resp.NextPageToken == "" || remaining <= 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	return messages, nil
}

// GetMessage fetches the full message, retrying once on transient errors.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	if c.service == nil {
		return nil, errNotConnected
	}

	msg, err := c.getOnce(ctx, messageID)
	if err == nil {
		return msg, nil
	}
	if !isRetryableError(err) {
		return nil, fmt.Errorf("unable to retrieve message %s: %w", messageID, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.retryDelay):
	}

	msg, err = c.getOnce(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message %s after retry: %w", messageID, err)
	}
	return msg, nil
}

func (c *Client) getOnce(ctx context.Context, messageID string) (*gmail.Message, error) {
	msgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return c.service.Users.Messages.Get(c.userID, messageID).Format("full").Context(msgCtx).Do()
}

// MarkProcessed attaches the processed label, creating it on first use, and
// clears UNREAD so the default query skips the message next time.
func (c *Client) MarkProcessed(ctx context.Context, messageID string) error {
	if c.service == nil {
		return errNotConnected
	}

	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
	if c.processedLabel != "" {
		labelID, err := c.ensureLabel(ctx)
		if err != nil {
			return err
		}
		req.AddLabelIds = []string{labelID}
	}

	if _, err := c.service.Users.Messages.Modify(c.userID, messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to label message %s: %w", messageID, err)
	}
	return nil
}

func (c *Client) ensureLabel(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.labelID != "" {
		return c.labelID, nil
	}

	resp, err := c.service.Users.Labels.List(c.userID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to list labels: %w", err)
	}
	for _, l := range resp.Labels {
		if strings.EqualFold(l.Name, c.processedLabel) {
			c.labelID = l.Id
			return c.labelID, nil
		}
	}

	label, err := c.service.Users.Labels.Create(c.userID, &gmail.Label{
		Name:                  c.processedLabel,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create label %s: %w", c.processedLabel, err)
	}
	c.labelID = label.Id
	return c.labelID, nil
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "connection reset")
}

package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/azstore/azstore/azstore"
)

func messagePath(queueName string) string { return "/" + queueName + "/messages" }
func messageIDPath(queueName, messageID string) string {
	return "/" + queueName + "/messages/" + messageID
}

// PutMessage enqueues a message. ttl of 0 defaults to 7 days (the
// service default); visibilityTimeout of 0 makes the message visible
// immediately.
func (c *Client) PutMessage(ctx context.Context, queueName, text string, ttl, visibilityTimeout time.Duration) error {
	q := newQuery()
	if ttl > 0 {
		q.Set("messagettl", strconv.Itoa(int(ttl/time.Second)))
	}
	if visibilityTimeout > 0 {
		q.Set("visibilitytimeout", strconv.Itoa(int(visibilityTimeout/time.Second)))
	}
	payload := []byte("<?xml version=\"1.0\" encoding=\"utf-8\"?><QueueMessage><MessageText>" + escapeXMLText(text) + "</MessageText></QueueMessage>")
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "POST",
		Path:      messagePath(queueName),
		Query:     q,
		Payload:   payload,
		Supported: azstore.QueueSupportedParams,
	})
	return err
}

// PeekMessages retrieves up to numOfMessages without affecting their
// visibility; PopReceipt/TimeNextVisible are empty on every result.
func (c *Client) PeekMessages(ctx context.Context, queueName string, numOfMessages int) ([]Message, error) {
	q := newQuery()
	q.Set("peekonly", "true")
	if numOfMessages > 0 {
		q.Set("numofmessages", strconv.Itoa(numOfMessages))
	}
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      messagePath(queueName),
		Query:     q,
		Supported: azstore.QueueSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return parseMessages(resp.Payload)
}

// GetMessages dequeues up to numOfMessages, hiding them from other
// consumers for visibilityTimeout; each result carries a PopReceipt
// the caller must present to DeleteMessage or UpdateMessage.
func (c *Client) GetMessages(ctx context.Context, queueName string, numOfMessages int, visibilityTimeout time.Duration) ([]Message, error) {
	q := newQuery()
	if numOfMessages > 0 {
		q.Set("numofmessages", strconv.Itoa(numOfMessages))
	}
	if visibilityTimeout > 0 {
		q.Set("visibilitytimeout", strconv.Itoa(int(visibilityTimeout/time.Second)))
	}
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      messagePath(queueName),
		Query:     q,
		Supported: azstore.QueueSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return parseMessages(resp.Payload)
}

// DeleteMessage removes a message previously retrieved with
// GetMessages, using its PopReceipt.
func (c *Client) DeleteMessage(ctx context.Context, queueName, messageID, popReceipt string) error {
	q := newQuery()
	q.Set("popreceipt", popReceipt)
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "DELETE",
		Path:      messageIDPath(queueName, messageID),
		Query:     q,
		Supported: azstore.QueueSupportedParams,
	})
	return err
}

// UpdateMessage changes a message's visibility timeout and, if text
// is non-empty, its content. It returns the new PopReceipt.
func (c *Client) UpdateMessage(ctx context.Context, queueName, messageID, popReceipt, text string, visibilityTimeout time.Duration) (string, error) {
	q := newQuery()
	q.Set("popreceipt", popReceipt)
	q.Set("visibilitytimeout", strconv.Itoa(int(visibilityTimeout/time.Second)))
	var payload []byte
	if text != "" {
		payload = []byte("<?xml version=\"1.0\" encoding=\"utf-8\"?><QueueMessage><MessageText>" + escapeXMLText(text) + "</MessageText></QueueMessage>")
	}
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      messageIDPath(queueName, messageID),
		Query:     q,
		Payload:   payload,
		Supported: azstore.QueueSupportedParams,
	})
	if err != nil {
		return "", err
	}
	return resp.Header("x-ms-popreceipt"), nil
}

// ClearMessages deletes all messages from a queue.
func (c *Client) ClearMessages(ctx context.Context, queueName string) error {
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "DELETE",
		Path:      messagePath(queueName),
		Supported: azstore.QueueSupportedParams,
	})
	return err
}

func escapeXMLText(s string) string {
	var out []byte
	for _, r := range s {
		switch r {
		case '&':
			out = append(out, []byte("&amp;")...)
		case '<':
			out = append(out, []byte("&lt;")...)
		case '>':
			out = append(out, []byte("&gt;")...)
		default:
			out = append(out, []byte(string(r))...)
		}
	}
	return string(out)
}

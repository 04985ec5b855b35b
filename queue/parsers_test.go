package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListQueues(t *testing.T) {
	payload := []byte(`<?xml version="1.0" encoding="utf-8"?>
<EnumerationResults>
  <Prefix></Prefix>
  <Marker></Marker>
  <MaxResults>5000</MaxResults>
  <Queues>
    <Queue>
      <Name>myqueue</Name>
      <Metadata>
        <Owner>alice</Owner>
      </Metadata>
    </Queue>
    <Queue>
      <Name>noMetadataQueue</Name>
    </Queue>
  </Queues>
  <NextMarker></NextMarker>
</EnumerationResults>`)

	result, err := parseListQueues(payload)
	require.NoError(t, err)
	require.Len(t, result.Queues, 2)
	assert.Equal(t, "myqueue", result.Queues[0].Name)
	assert.Equal(t, "alice", result.Queues[0].Metadata["Owner"])
	assert.Nil(t, result.Queues[1].Metadata)
}

func TestParseListQueuesMalformed(t *testing.T) {
	_, err := parseListQueues([]byte("not xml"))
	require.Error(t, err)
}

func TestParseMessagesDistinguishesGetFromPeek(t *testing.T) {
	payload := []byte(`<QueueMessagesList>
  <QueueMessage>
    <MessageId>msg-1</MessageId>
    <InsertionTime>Mon, 01 Jan 2024 00:00:00 GMT</InsertionTime>
    <ExpirationTime>Mon, 08 Jan 2024 00:00:00 GMT</ExpirationTime>
    <PopReceipt>receipt-1</PopReceipt>
    <TimeNextVisible>Mon, 01 Jan 2024 00:00:30 GMT</TimeNextVisible>
    <DequeueCount>1</DequeueCount>
    <MessageText>hello</MessageText>
  </QueueMessage>
</QueueMessagesList>`)

	messages, err := parseMessages(payload)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	m := messages[0]
	assert.Equal(t, "msg-1", m.MessageID)
	assert.Equal(t, "receipt-1", m.PopReceipt)
	assert.Equal(t, "hello", m.Text)
	assert.Equal(t, 1, m.DequeueCount)
}

func TestParseMessagesPeekHasNoPopReceipt(t *testing.T) {
	payload := []byte(`<QueueMessagesList>
  <QueueMessage>
    <MessageId>msg-2</MessageId>
    <InsertionTime>Mon, 01 Jan 2024 00:00:00 GMT</InsertionTime>
    <ExpirationTime>Mon, 08 Jan 2024 00:00:00 GMT</ExpirationTime>
    <DequeueCount>0</DequeueCount>
    <MessageText>peeked</MessageText>
  </QueueMessage>
</QueueMessagesList>`)

	messages, err := parseMessages(payload)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Empty(t, messages[0].PopReceipt)
	assert.Empty(t, messages[0].TimeNextVisible)
}

func TestParseMessagesEmptyListNeverNil(t *testing.T) {
	result, err := parseMessages([]byte(`<QueueMessagesList></QueueMessagesList>`))
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Len(t, result, 0)
}

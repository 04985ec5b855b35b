package queue

import "encoding/xml"

type metadataXML map[string]string

// UnmarshalXML implements xml.Unmarshaler, same technique as the blob
// façade's metadataXML.
func (m *metadataXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	result := map[string]string{}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			result[t.Name.Local] = value
		case xml.EndElement:
			*m = result
			return nil
		}
	}
}

type enumerationResultsXML struct {
	XMLName    xml.Name   `xml:"EnumerationResults"`
	Prefix     string     `xml:"Prefix"`
	Marker     string     `xml:"Marker"`
	MaxResults int        `xml:"MaxResults"`
	NextMarker string     `xml:"NextMarker"`
	Queues     []queueXML `xml:"Queues>Queue"`
}

type queueXML struct {
	Name     string      `xml:"Name"`
	Metadata metadataXML `xml:"Metadata"`
}

// QueueItem is one entry of a queue listing. Metadata is nil (not an
// empty map) when the listing didn't request metadata inclusion.
type QueueItem struct {
	Name     string
	Metadata map[string]string
}

// ListQueuesResult is the parsed response of a queue enumeration call.
type ListQueuesResult struct {
	Prefix     string
	Marker     string
	MaxResults int
	NextMarker string
	Queues     []QueueItem
}

func parseListQueues(payload []byte) (*ListQueuesResult, error) {
	var x enumerationResultsXML
	if err := xml.Unmarshal(payload, &x); err != nil {
		return nil, newMalformedError(err)
	}
	result := &ListQueuesResult{
		Prefix:     x.Prefix,
		Marker:     x.Marker,
		MaxResults: x.MaxResults,
		NextMarker: x.NextMarker,
		Queues:     make([]QueueItem, 0, len(x.Queues)),
	}
	for _, q := range x.Queues {
		item := QueueItem{Name: q.Name}
		if q.Metadata != nil {
			item.Metadata = map[string]string(q.Metadata)
		}
		result.Queues = append(result.Queues, item)
	}
	return result, nil
}

type queueMessageXML struct {
	MessageID      string `xml:"MessageId"`
	InsertionTime  string `xml:"InsertionTime"`
	ExpirationTime string `xml:"ExpirationTime"`
	// PopReceipt/TimeNextVisible/DequeueCount are only present on a
	// get (not a peek)
	PopReceipt      string `xml:"PopReceipt"`
	TimeNextVisible string `xml:"TimeNextVisible"`
	DequeueCount    int    `xml:"DequeueCount"`
	MessageText     string `xml:"MessageText"`
}

type queueMessagesListXML struct {
	XMLName  xml.Name          `xml:"QueueMessagesList"`
	Messages []queueMessageXML `xml:"QueueMessage"`
}

// Message is one dequeued or peeked message. PopReceipt and
// TimeNextVisible are empty on a peek result.
type Message struct {
	MessageID       string
	InsertionTime   string
	ExpirationTime  string
	PopReceipt      string
	TimeNextVisible string
	DequeueCount    int
	Text            string
}

func parseMessages(payload []byte) ([]Message, error) {
	var x queueMessagesListXML
	if err := xml.Unmarshal(payload, &x); err != nil {
		return nil, newMalformedError(err)
	}
	result := make([]Message, 0, len(x.Messages))
	for _, m := range x.Messages {
		result = append(result, Message{
			MessageID:       m.MessageID,
			InsertionTime:   m.InsertionTime,
			ExpirationTime:  m.ExpirationTime,
			PopReceipt:      m.PopReceipt,
			TimeNextVisible: m.TimeNextVisible,
			DequeueCount:    m.DequeueCount,
			Text:            m.MessageText,
		})
	}
	return result, nil
}

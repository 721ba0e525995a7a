package main

import (
	"github.com/aws/aws-lambda-go/events"
)

// eventTypeAttribute is the SQS message attribute naming the event kind.
const eventTypeAttribute = "event_type"

// eventType returns the event kind of msg, or "" when the attribute is absent.
func eventType(msg events.SQSMessage) string {
	attr, ok := msg.MessageAttributes[eventTypeAttribute]
	if !ok || attr.StringValue == nil {
		return ""
	}
	return *attr.StringValue
}

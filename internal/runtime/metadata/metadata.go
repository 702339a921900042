// Package metadata names the headers topic transports carry next to a packet
// and builds the header sets of requests and replies.
package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// Header keys.
const (
	CorrelationIDKey = "correlation_id"
	ReplyTopicKey    = "reply_topic"
	PatternKey       = "pattern"
	ClientIDKey      = "client_id"
	ErrorKey         = "error"
	DisposedKey      = "is_disposed"
)

// Keys is the header naming of one backend framework. An empty key is not
// written.
type Keys struct {
	CorrelationID  string
	ReplyTopic     string
	ReplyPartition string
	Pattern        string
	ClientID       string
	Error          string
	DisposedHeader string
}

// DefaultKeys is the naming of the gateway's own topic transports.
var DefaultKeys = Keys{
	CorrelationID:  CorrelationIDKey,
	ReplyTopic:     ReplyTopicKey,
	Pattern:        PatternKey,
	ClientID:       ClientIDKey,
	Error:          ErrorKey,
	DisposedHeader: DisposedKey,
}

// NestKafkaKeys is the naming a NestJS Kafka microservice reads and writes.
// The server only answers requests carrying all three reply headers.
var NestKafkaKeys = Keys{
	CorrelationID:  "kafka_correlationId",
	ReplyTopic:     "kafka_replyTopic",
	ReplyPartition: "kafka_replyPartition",
	Pattern:        PatternKey,
	ClientID:       ClientIDKey,
	Error:          "kafka_nest-err",
	DisposedHeader: "kafka_nest-is-disposed",
}

// replyPartition is announced to NestJS servers. Reply topics are consumed by
// the whole consumer group, so the partition only has to exist.
const replyPartition = "0"

// Request returns the headers of a request published by the gateway. Empty
// values are left out.
func (k Keys) Request(correlationID, replyTopic, pattern, clientID string) message.Metadata {
	md := make(message.Metadata, 5)
	set(md, k.CorrelationID, correlationID)
	set(md, k.ReplyTopic, replyTopic)
	if replyTopic != "" {
		set(md, k.ReplyPartition, replyPartition)
	}
	set(md, k.Pattern, pattern)
	set(md, k.ClientID, clientID)
	return md
}

// Reply returns the headers of the reply to a request carrying request. The
// correlation id defaults to the request's.
func (k Keys) Reply(request message.Metadata, correlationID string) message.Metadata {
	if correlationID == "" {
		correlationID = k.CorrelationIDOf(request)
	}
	md := make(message.Metadata, 2)
	set(md, k.CorrelationID, correlationID)
	set(md, k.Pattern, request.Get(k.Pattern))
	return md
}

// CorrelationIDOf returns the correlation id header of md.
func (k Keys) CorrelationIDOf(md message.Metadata) string {
	if k.CorrelationID == "" {
		return ""
	}
	return md.Get(k.CorrelationID)
}

// PatternOf returns the pattern header of md.
func (k Keys) PatternOf(md message.Metadata) string {
	if k.Pattern == "" {
		return ""
	}
	return md.Get(k.Pattern)
}

// Disposed reports whether md marks the last reply. NestJS sets the header to
// a single zero byte, so any value other than "false" counts.
func (k Keys) Disposed(md message.Metadata) bool {
	if k.DisposedHeader == "" {
		return false
	}
	v, ok := md[k.DisposedHeader]
	return ok && v != "false"
}

// RemoteError returns the error header and whether it is set.
func (k Keys) RemoteError(md message.Metadata) (string, bool) {
	if k.Error == "" {
		return "", false
	}
	v := md.Get(k.Error)
	return v, v != ""
}

// Request returns request headers in the default naming.
func Request(correlationID, replyTopic, pattern, clientID string) message.Metadata {
	return DefaultKeys.Request(correlationID, replyTopic, pattern, clientID)
}

// Reply returns reply headers in the default naming.
func Reply(request message.Metadata, correlationID string) message.Metadata {
	return DefaultKeys.Reply(request, correlationID)
}

// Disposed reports whether the is_disposed header marks the last reply.
func Disposed(md message.Metadata) bool {
	return DefaultKeys.Disposed(md)
}

// RemoteError returns the error header and whether it is set.
func RemoteError(md message.Metadata) (string, bool) {
	return DefaultKeys.RemoteError(md)
}

func set(md message.Metadata, key, value string) {
	if key != "" && value != "" {
		md.Set(key, value)
	}
}

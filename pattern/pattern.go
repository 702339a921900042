// Package pattern resolves logical gateway operations to the addressing
// information a transport needs to reach the backend handling them.
//
// Every gateway module owns one immutable Registry. A Registry maps a transport
// Kind to a Table of operation descriptors. Point-to-point transports address an
// operation by a role/command pair, topic transports by a single topic name.
package pattern

import (
	"fmt"
	"sort"
	"strings"

	"github.com/drblury/protogate/internal/runtime/jsoncodec"
)

// Family groups transport kinds by how they address a remote operation.
type Family int

const (
	// Unsupported marks a descriptor that cannot be dispatched.
	Unsupported Family = iota
	// PointToPoint transports address operations by role and command; each
	// request carries its own reply channel.
	PointToPoint
	// Topic transports address operations by a topic name and correlate replies
	// on a pre-subscribed reply topic.
	Topic
)

func (f Family) String() string {
	switch f {
	case PointToPoint:
		return "point-to-point"
	case Topic:
		return "topic"
	default:
		return "unsupported"
	}
}

// Kind identifies the pattern table a transport resolves against.
type Kind string

const (
	TCP      Kind = "TCP"
	NATS     Kind = "NATS"
	REDIS    Kind = "REDIS"
	KAFKA    Kind = "KAFKA"
	RABBITMQ Kind = "RABBITMQ"
	AWS      Kind = "AWS"
	HTTP     Kind = "HTTP"
	CHANNEL  Kind = "CHANNEL"
)

var kindFamilies = map[Kind]Family{
	TCP:      PointToPoint,
	NATS:     PointToPoint,
	REDIS:    PointToPoint,
	KAFKA:    Topic,
	RABBITMQ: Topic,
	AWS:      Topic,
	HTTP:     Topic,
	CHANNEL:  Topic,
}

// Family reports the addressing family of the kind.
func (k Kind) Family() Family {
	return kindFamilies[k]
}

// ParseKind accepts a kind or a transport name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := kindFamilies[k]; !ok {
		return "", fmt.Errorf("pattern: unknown transport kind %q", s)
	}
	return k, nil
}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindFamilies))
	for k := range kindFamilies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ReplySuffix is appended to a topic to derive the topic replies arrive on.
const ReplySuffix = ".reply"

// Descriptor addresses one operation on one transport kind. The zero value is
// the unsupported descriptor.
type Descriptor struct {
	Role  string
	Cmd   string
	Topic string
}

// Family infers the addressing family from the populated fields.
func (d Descriptor) Family() Family {
	switch {
	case d.Cmd != "":
		return PointToPoint
	case d.Topic != "":
		return Topic
	default:
		return Unsupported
	}
}

// IsZero reports whether d is the unsupported descriptor.
func (d Descriptor) IsZero() bool {
	return d == Descriptor{}
}

// Pattern returns the wire address of the descriptor. Point-to-point
// descriptors serialise as a JSON object with sorted keys so that backends
// matching on the string form see a canonical value.
func (d Descriptor) Pattern() string {
	switch d.Family() {
	case PointToPoint:
		fields := map[string]string{"cmd": d.Cmd}
		if d.Role != "" {
			fields["role"] = d.Role
		}
		raw, err := jsoncodec.MarshalString(fields)
		if err != nil {
			return ""
		}
		return raw
	case Topic:
		return d.Topic
	default:
		return ""
	}
}

// ReplyTopic returns the topic replies to d are published on.
func (d Descriptor) ReplyTopic() string {
	if p := d.Pattern(); p != "" {
		return p + ReplySuffix
	}
	return ""
}

func (d Descriptor) String() string {
	switch d.Family() {
	case PointToPoint:
		return fmt.Sprintf("{role: %s, cmd: %s}", d.Role, d.Cmd)
	case Topic:
		return fmt.Sprintf("{topic: %s}", d.Topic)
	default:
		return "{unsupported}"
	}
}

func (d Descriptor) check(kind Kind) error {
	if d.IsZero() {
		return nil
	}
	want := kind.Family()
	switch want {
	case PointToPoint:
		if d.Role == "" || d.Cmd == "" || d.Topic != "" {
			return fmt.Errorf("%s requires role and cmd only, got %s", kind, d)
		}
	case Topic:
		if d.Topic == "" || d.Role != "" || d.Cmd != "" {
			return fmt.Errorf("%s requires a topic only, got %s", kind, d)
		}
	default:
		return fmt.Errorf("unknown transport kind %q", kind)
	}
	return nil
}

// Table maps operation names to descriptors for a single kind. An entry holding
// the zero Descriptor declares the operation unsupported on that kind; an
// absent entry is a coverage gap.
type Table map[string]Descriptor

// Package candidate describes ICE candidates exchanged between peers and their SDP
// candidate-attribute encoding.
package candidate

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pion/ice/v4"
)

// Type is the ICE candidate type as written in the "typ" field of a candidate line.
type Type string

const (
	TypeHost            Type = "host"
	TypeServerReflexive Type = "srflx"
	TypePeerReflexive   Type = "prflx"
	TypeRelay           Type = "relay"
)

var (
	ErrInvalidComponent = errors.New("candidate component must be greater than zero")
	ErrInvalidTransport = errors.New("unsupported candidate transport")
	ErrInvalidAddress   = errors.New("candidate address is not an IP literal")
	ErrInvalidPort      = errors.New("candidate port out of range")
	ErrInvalidType      = errors.New("unsupported candidate type")
)

// Candidate is one local or remote transport address of an ICE component. Values are immutable once
// produced; copy them freely.
type Candidate struct {
	// StreamID is the local stream the candidate belongs to. It is not part of the SDP encoding.
	StreamID uint32

	Foundation     string
	Component      uint32
	Transport      string
	Priority       uint32
	Address        string
	Port           int
	Type           Type
	RelatedAddress string
	RelatedPort    int
}

// Marshal returns the candidate-attribute value, without the "candidate:" prefix.
func (c Candidate) Marshal() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s %d %s %d typ %s",
		c.Foundation, c.Component, strings.ToLower(c.Transport), c.Priority, c.Address, c.Port, c.Type)
	if c.RelatedAddress != "" {
		fmt.Fprintf(&b, " raddr %s rport %d", c.RelatedAddress, c.RelatedPort)
	}
	return b.String()
}

// String renders the candidate the way it appears in an SDP body.
func (c Candidate) String() string {
	return "candidate:" + c.Marshal()
}

// Validate reports why the candidate cannot be handed to the engine. Candidates with FQDN addresses
// are rejected because the engine does not resolve names.
func (c Candidate) Validate() error {
	if c.Component == 0 {
		return ErrInvalidComponent
	}

	switch strings.ToLower(c.Transport) {
	case "udp", "tcp":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport)
	}

	if net.ParseIP(c.Address) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, c.Address)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	switch c.Type {
	case TypeHost, TypeServerReflexive, TypePeerReflexive, TypeRelay:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}
	return nil
}

// Unmarshal parses an SDP candidate line. The "a=" and "candidate:" prefixes are optional.
func Unmarshal(line string) (Candidate, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "a=")
	line = strings.TrimPrefix(line, "candidate:")

	c, err := ice.UnmarshalCandidate(line)
	if err != nil {
		return Candidate{}, fmt.Errorf("parse candidate %q: %w", line, err)
	}

	// pion normalises the component to 16 bits; the line is the source of truth.
	parsed := FromICE(0, c)
	if fields := strings.Fields(line); len(fields) > 1 {
		if component, err := strconv.ParseUint(fields[1], 10, 32); err == nil {
			parsed.Component = uint32(component)
		}
	}
	return parsed, nil
}

// FromICE converts a pion candidate discovered for streamID.
func FromICE(streamID uint32, c ice.Candidate) Candidate {
	out := Candidate{
		StreamID:   streamID,
		Foundation: c.Foundation(),
		Component:  uint32(c.Component()),
		Transport:  c.NetworkType().NetworkShort(),
		Priority:   c.Priority(),
		Address:    c.Address(),
		Port:       c.Port(),
		Type:       Type(c.Type().String()),
	}
	if rel := c.RelatedAddress(); rel != nil {
		out.RelatedAddress = rel.Address
		out.RelatedPort = rel.Port
	}
	return out
}

// ToICE converts the candidate to its pion representation.
func (c Candidate) ToICE() (ice.Candidate, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return ice.UnmarshalCandidate(c.Marshal())
}

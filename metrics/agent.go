package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// AgentMetrics counts what flows through an agent. A nil *AgentMetrics is valid and records
// nothing.
type AgentMetrics struct {
	controlMessages metric.Int64Counter
	candidates      metric.Int64Counter
	stateChanges    metric.Int64Counter
	droppedPackets  metric.Int64Counter
	streams         metric.Int64UpDownCounter
}

func NewAgentMetrics(meter metric.Meter) (*AgentMetrics, error) {
	controlMessages, err := meter.Int64Counter("iceagent_control_messages_total",
		metric.WithDescription("Control messages applied by the drive loop, by kind"))
	if err != nil {
		return nil, err
	}

	candidates, err := meter.Int64Counter("iceagent_local_candidates_total",
		metric.WithDescription("Local candidates reported by the engine"))
	if err != nil {
		return nil, err
	}

	stateChanges, err := meter.Int64Counter("iceagent_component_state_changes_total",
		metric.WithDescription("Component state transitions, by new state"))
	if err != nil {
		return nil, err
	}

	droppedPackets, err := meter.Int64Counter("iceagent_packets_dropped_total",
		metric.WithDescription("Packets dropped because a buffer was full or the component was not connected"))
	if err != nil {
		return nil, err
	}

	streams, err := meter.Int64UpDownCounter("iceagent_streams",
		metric.WithDescription("Streams currently allocated"))
	if err != nil {
		return nil, err
	}

	return &AgentMetrics{
		controlMessages: controlMessages,
		candidates:      candidates,
		stateChanges:    stateChanges,
		droppedPackets:  droppedPackets,
		streams:         streams,
	}, nil
}

func (m *AgentMetrics) ControlMessage(kind string) {
	if m == nil {
		return
	}
	m.controlMessages.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *AgentMetrics) CandidateDiscovered() {
	if m == nil {
		return
	}
	m.candidates.Add(context.Background(), 1)
}

func (m *AgentMetrics) StateChanged(state string) {
	if m == nil {
		return
	}
	m.stateChanges.Add(context.Background(), 1, metric.WithAttributes(attribute.String("state", state)))
}

func (m *AgentMetrics) PacketDropped(direction string) {
	if m == nil {
		return
	}
	m.droppedPackets.Add(context.Background(), 1, metric.WithAttributes(attribute.String("direction", direction)))
}

func (m *AgentMetrics) StreamsOpened(n int) {
	if m == nil || n == 0 {
		return
	}
	m.streams.Add(context.Background(), int64(n))
}

func (m *AgentMetrics) StreamsClosed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.streams.Add(context.Background(), -int64(n))
}

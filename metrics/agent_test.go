package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)

	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestAgentMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewAgentMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.ControlMessage("send")
	m.ControlMessage("send")
	m.ControlMessage("drop_stream")
	m.CandidateDiscovered()
	m.StateChanged("Connected")
	m.PacketDropped(DirectionInbound)
	m.StreamsOpened(2)
	m.StreamsClosed(1)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["iceagent_control_messages_total"], attribute.String("kind", "send")))
	assert.Equal(t, int64(1), sumOf(t, data["iceagent_control_messages_total"], attribute.String("kind", "drop_stream")))
	assert.Equal(t, int64(1), sumOf(t, data["iceagent_local_candidates_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["iceagent_component_state_changes_total"], attribute.String("state", "Connected")))
	assert.Equal(t, int64(1), sumOf(t, data["iceagent_packets_dropped_total"], attribute.String("direction", DirectionInbound)))
	assert.Equal(t, int64(1), sumOf(t, data["iceagent_streams"]))
}

func TestAgentMetrics_Nil(t *testing.T) {
	var m *AgentMetrics
	assert.NotPanics(t, func() {
		m.ControlMessage("send")
		m.CandidateDiscovered()
		m.StateChanged("Ready")
		m.PacketDropped(DirectionOutbound)
		m.StreamsOpened(1)
		m.StreamsClosed(1)
	})
}

func TestServer_Endpoint(t *testing.T) {
	s, err := NewServer("127.0.0.1:0", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, s.Endpoint)
	require.NoError(t, s.Shutdown(context.Background()))
}

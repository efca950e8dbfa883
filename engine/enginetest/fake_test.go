package enginetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbirdio/iceagent/candidate"
	"github.com/netbirdio/iceagent/engine"
)

type recorder struct {
	candidates []candidate.Candidate
	gathered   []uint32
	states     []engine.ComponentState
	packets    [][]byte
}

func newRecordedEngine(t *testing.T, n *Network) (*Engine, *recorder) {
	t.Helper()
	e := n.NewEngine(nil)
	r := &recorder{}
	require.NoError(t, e.OnNewCandidate(func(c candidate.Candidate) { r.candidates = append(r.candidates, c) }))
	require.NoError(t, e.OnCandidateGatheringDone(func(id uint32) { r.gathered = append(r.gathered, id) }))
	require.NoError(t, e.OnComponentStateChanged(func(_, _ uint32, s engine.ComponentState) { r.states = append(r.states, s) }))
	return e, r
}

func TestEngine_LinkedPeers(t *testing.T) {
	n := NewNetwork()
	left, leftRec := newRecordedEngine(t, n)
	right, rightRec := newRecordedEngine(t, n)

	ls, err := left.AddStream(1)
	require.NoError(t, err)
	rs, err := right.AddStream(1)
	require.NoError(t, err)

	require.NoError(t, right.AttachRecv(rs, 1, func(buf []byte) { rightRec.packets = append(rightRec.packets, buf) }))

	require.NoError(t, left.GatherCandidates(ls))
	require.NoError(t, right.GatherCandidates(rs))
	require.Len(t, leftRec.candidates, 1)
	require.Len(t, rightRec.candidates, 1)
	assert.Equal(t, []uint32{ls}, leftRec.gathered)
	assert.NotEqual(t, leftRec.candidates[0].Port, rightRec.candidates[0].Port)

	_, err = left.Send(ls, 1, []byte{1})
	assert.ErrorIs(t, err, engine.ErrNotConnected)

	ru, rp, err := right.LocalCredentials(rs)
	require.NoError(t, err)
	require.NoError(t, left.SetRemoteCredentials(ls, ru, rp))
	added, err := left.AddRemoteCandidates(ls, 1, rightRec.candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	assert.Equal(t, []engine.ComponentState{
		engine.ComponentStateGathering,
		engine.ComponentStateConnecting,
		engine.ComponentStateConnected,
		engine.ComponentStateReady,
	}, leftRec.states)

	sent, err := left.Send(ls, 1, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 4, sent)
	assert.Equal(t, [][]byte{{1, 2, 3, 4}}, rightRec.packets)
}

func TestEngine_PortRange(t *testing.T) {
	n := NewNetwork()
	n.Reserve(40000)
	e, rec := newRecordedEngine(t, n)

	id, err := e.AddStream(2)
	require.NoError(t, err)
	e.SetPortRange(id, 1, 40000, 40001)
	e.SetPortRange(id, 2, 40000, 40001)

	err = e.GatherCandidates(id)
	assert.ErrorIs(t, err, engine.ErrPortRangeExhausted)
	assert.Empty(t, rec.candidates)

	e.RemoveStream(id)
	assert.Equal(t, []uint32{id}, e.Removed())
	assert.Empty(t, e.LiveStreams())

	id, err = e.AddStream(1)
	require.NoError(t, err)
	e.SetPortRange(id, 1, 40000, 40001)
	require.NoError(t, e.GatherCandidates(id))
	require.Len(t, rec.candidates, 1)
	assert.Equal(t, 40001, rec.candidates[0].Port)
}

func TestEngine_RejectsInvalidRemoteCandidates(t *testing.T) {
	e, _ := newRecordedEngine(t, NewNetwork())
	id, err := e.AddStream(1)
	require.NoError(t, err)

	added, err := e.AddRemoteCandidates(id, 1, []candidate.Candidate{
		{Foundation: "1", Component: 1, Transport: "udp", Address: "peer.example.com", Port: 1, Type: candidate.TypeHost},
	})
	require.NoError(t, err)
	assert.Zero(t, added)

	_, err = e.AddRemoteCandidates(id+1, 1, nil)
	assert.ErrorIs(t, err, engine.ErrStreamNotFound)
}

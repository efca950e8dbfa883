package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidate_Marshal(t *testing.T) {
	tables := []struct {
		name      string
		candidate Candidate
		want      string
	}{
		{
			name: "host",
			candidate: Candidate{
				Foundation: "1", Component: 1, Transport: "udp", Priority: 2130706431,
				Address: "127.0.0.1", Port: 50000, Type: TypeHost,
			},
			want: "1 1 udp 2130706431 127.0.0.1 50000 typ host",
		},
		{
			name: "server reflexive with related address",
			candidate: Candidate{
				Foundation: "2", Component: 2, Transport: "UDP", Priority: 1694498815,
				Address: "198.51.100.7", Port: 61000, Type: TypeServerReflexive,
				RelatedAddress: "10.0.0.2", RelatedPort: 50001,
			},
			want: "2 2 udp 1694498815 198.51.100.7 61000 typ srflx raddr 10.0.0.2 rport 50001",
		},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.Equal(t, table.want, table.candidate.Marshal())
			assert.Equal(t, "candidate:"+table.want, table.candidate.String())
		})
	}
}

func TestUnmarshal(t *testing.T) {
	lines := []string{
		"candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host",
		"a=candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host",
		"1 1 udp 2130706431 127.0.0.1 50000 typ host",
	}

	for _, line := range lines {
		c, err := Unmarshal(line)
		require.NoError(t, err, line)
		assert.Equal(t, uint32(1), c.Component)
		assert.Equal(t, "127.0.0.1", c.Address)
		assert.Equal(t, 50000, c.Port)
		assert.Equal(t, TypeHost, c.Type)
		assert.Equal(t, "udp", c.Transport)
		assert.Equal(t, uint32(2130706431), c.Priority)
	}
}

func TestUnmarshal_KeepsComponent(t *testing.T) {
	c, err := Unmarshal("candidate:4 2 udp 2130706430 192.0.2.10 40000 typ host")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), c.Component)
}

func TestUnmarshal_Srflx(t *testing.T) {
	c, err := Unmarshal("candidate:2 1 udp 1694498815 198.51.100.7 61000 typ srflx raddr 10.0.0.2 rport 50001")
	require.NoError(t, err)
	assert.Equal(t, TypeServerReflexive, c.Type)
	assert.Equal(t, "10.0.0.2", c.RelatedAddress)
	assert.Equal(t, 50001, c.RelatedPort)
}

func TestUnmarshal_Malformed(t *testing.T) {
	_, err := Unmarshal("candidate:garbage")
	assert.Error(t, err)
}

func TestCandidate_Validate(t *testing.T) {
	valid := Candidate{
		Foundation: "1", Component: 1, Transport: "udp", Priority: 1,
		Address: "127.0.0.1", Port: 5000, Type: TypeHost,
	}
	require.NoError(t, valid.Validate())

	tables := []struct {
		name   string
		mutate func(c *Candidate)
		want   error
	}{
		{"zero component", func(c *Candidate) { c.Component = 0 }, ErrInvalidComponent},
		{"sctp transport", func(c *Candidate) { c.Transport = "sctp" }, ErrInvalidTransport},
		{"fqdn address", func(c *Candidate) { c.Address = "peer.example.com" }, ErrInvalidAddress},
		{"zero port", func(c *Candidate) { c.Port = 0 }, ErrInvalidPort},
		{"huge port", func(c *Candidate) { c.Port = 70000 }, ErrInvalidPort},
		{"unknown type", func(c *Candidate) { c.Type = "bogus" }, ErrInvalidType},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			c := valid
			table.mutate(&c)
			assert.ErrorIs(t, c.Validate(), table.want)
		})
	}
}

func TestCandidate_ToICE(t *testing.T) {
	c := Candidate{
		Foundation: "1", Component: 1, Transport: "udp", Priority: 2130706431,
		Address: "127.0.0.1", Port: 50000, Type: TypeHost,
	}
	ic, err := c.ToICE()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ic.Address())
	assert.Equal(t, 50000, ic.Port())

	back := FromICE(3, ic)
	assert.Equal(t, uint32(3), back.StreamID)
	assert.Equal(t, c.Address, back.Address)
	assert.Equal(t, c.Port, back.Port)
	assert.Equal(t, TypeHost, back.Type)

	c.Address = "peer.example.com"
	_, err = c.ToICE()
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

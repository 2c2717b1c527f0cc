package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRecvPairsRanks(t *testing.T) {
	err := RunRanks(2, func(c *ChannelComm) error {
		peer := 1 - c.Rank()
		send := []float64{float64(c.Rank()), 42}
		recv, err := c.SendRecvFloat64(peer, send)
		if err != nil {
			return err
		}
		assert.Equal(t, []float64{float64(peer), 42}, recv)
		return nil
	})
	require.NoError(t, err)
}

func TestSendRecvRejectsSelf(t *testing.T) {
	net := NewNetwork(2)
	_, err := net.Comm(0).SendRecvFloat64(0, nil)
	assert.Error(t, err)
	_, err = net.Comm(0).SendRecvInt(5, nil)
	assert.Error(t, err)
}

func TestAllReduceMin(t *testing.T) {
	err := RunRanks(4, func(c *ChannelComm) error {
		v := float64(10 - c.Rank())
		got, err := c.AllReduceMin(v)
		if err != nil {
			return err
		}
		assert.Equal(t, 7.0, got)
		return nil
	})
	require.NoError(t, err)
}

func TestAllReduceMaxInt(t *testing.T) {
	err := RunRanks(3, func(c *ChannelComm) error {
		got, err := c.AllReduceMaxInt(c.Rank() * 2)
		if err != nil {
			return err
		}
		assert.Equal(t, 4, got)
		return nil
	})
	require.NoError(t, err)
}

func TestBarrierCompletes(t *testing.T) {
	err := RunRanks(3, func(c *ChannelComm) error {
		for i := 0; i < 5; i++ {
			if err := c.Barrier(); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerInstancesOwnSeparateProcessingLists(t *testing.T) {
	a := NewRedisBroker(nil, AnalysisQueue)
	b := NewRedisBroker(nil, AnalysisQueue)

	// Two instances on the same queue must never share in-flight state:
	// draining another instance's list while it is alive would hand its
	// running job to a second worker.
	require.NotEqual(t, a.processingList(), b.processingList())
	assert.Contains(t, a.processingList(), AnalysisQueue+processingSlot+":")
	assert.Contains(t, a.processingList(), a.instance)

	require.NotEqual(t, a.heartbeatKey(a.instance), b.heartbeatKey(b.instance))
	assert.Equal(t, a.heartbeatKey(b.instance), b.heartbeatKey(b.instance))
}

func TestBrokerSharesQueueAndDelayedSet(t *testing.T) {
	a := NewRedisBroker(nil, AnalysisQueue)
	b := NewRedisBroker(nil, AnalysisQueue)

	// The queue and the delayed set stay shared so any instance can promote
	// and pick up a parked retry.
	assert.Equal(t, a.queue, b.queue)
	assert.Equal(t, a.delayedSet(), b.delayedSet())
}

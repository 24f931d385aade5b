// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/health"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/test/testnode"
)

func TestTrackHealth(t *testing.T) {
	n, err := testnode.NewDefault()
	require.NoError(t, err)
	defer n.Close()

	h := health.New()
	commits := make(chan *node.Committed, 16)
	sub := n.Subscribe(commits)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- trackHealth(ctx, h, commits, sub.Err()) }()

	status, err := h.Status(time.Minute)
	require.NoError(t, err)
	assert.False(t, status.Healthy)

	c, err := n.Rotate()
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		status, err := h.Status(time.Minute)
		return err == nil && status.Healthy
	}, 5*time.Second, 10*time.Millisecond)
	status, err = h.Status(time.Minute)
	require.NoError(t, err)
	assert.Equal(t, npos.SessionIndex(0), *status.SessionIngestion.Session)
	assert.Equal(t, c.Digest, *status.SessionIngestion.Digest)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("health tracking did not stop")
	}
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/npos"
)

func TestHealth_NewSession(t *testing.T) {
	h := New()
	digest := npos.Bytes32{0x01, 0x02, 0x03}

	h.NewSession(7, digest)

	require.NotNil(t, h.session)
	assert.Equal(t, npos.SessionIndex(7), *h.session)
	assert.Equal(t, digest, *h.digest)
	assert.WithinDuration(t, time.Now(), h.newSession, time.Second)

	status, err := h.Status(time.Minute)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, npos.SessionIndex(7), *status.SessionIngestion.Session)
	require.NotNil(t, status.SessionIngestion.Timestamp)
}

func TestHealth_NoSession(t *testing.T) {
	h := New()

	status, err := h.Status(time.Hour)
	require.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.Nil(t, status.SessionIngestion.Session)
	assert.Nil(t, status.SessionIngestion.Timestamp)
}

func TestHealth_Stale(t *testing.T) {
	h := New()
	h.NewSession(1, npos.Bytes32{})
	h.newSession = time.Now().Add(-time.Minute)

	status, err := h.Status(10 * time.Second)
	require.NoError(t, err)
	assert.False(t, status.Healthy)

	status, err = h.Status(2 * time.Minute)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

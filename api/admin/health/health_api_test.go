// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/health"
	"github.com/vechain/npos/npos"
)

func initAPIServer(t *testing.T, h *health.Health) *httptest.Server {
	router := mux.NewRouter()
	New(h, time.Minute).Mount(router, "/health")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()

	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return r, res.StatusCode
}

func TestHealth(t *testing.T) {
	h := health.New()
	ts := initAPIServer(t, h)

	var status health.Status
	body, code := httpGet(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal(body, &status))
	assert.False(t, status.Healthy)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	h.NewSession(3, npos.Bytes32{0xaa})
	body, code = httpGet(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal(body, &status))
	assert.True(t, status.Healthy)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, npos.SessionIndex(3), *status.SessionIngestion.Session)
	assert.Equal(t, npos.Bytes32{0xaa}, *status.SessionIngestion.Digest)

	_, code = httpGet(t, ts.URL+"/health?maxTimeBetweenSessions=1ns")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	// unparsable overrides fall back to the default
	_, code = httpGet(t, ts.URL+"/health?maxTimeBetweenSessions=soon")
	assert.Equal(t, http.StatusOK, code)
}

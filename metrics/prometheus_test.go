// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func TestNoopMetrics(t *testing.T) {
	m := defaultNoopMetrics()
	m.GetOrCreateCountMeter("c").Add(1)
	m.GetOrCreateGaugeVecMeter("g", []string{"l"}).SetWithLabel(1, map[string]string{"l": "x"})
	m.GetOrCreateHistogramMeter("h", nil).Observe(1)

	rec := httptest.NewRecorder()
	m.GetOrCreateHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPromMetrics(t *testing.T) {
	prom := newPrometheusMetrics()

	count := prom.GetOrCreateCountMeter("bonds_count")
	assert.Same(t, count, prom.GetOrCreateCountMeter("bonds_count"))
	count.Add(2)
	count.Add(3)

	gaugeVec := prom.GetOrCreateGaugeVecMeter("era_gauge", []string{"kind"})
	gaugeVec.SetWithLabel(7, map[string]string{"kind": "active"})
	gaugeVec.AddWithLabel(1, map[string]string{"kind": "active"})

	hist := prom.GetOrCreateHistogramVecMeter("api_duration_ms", []string{"code"}, BucketHTTPReqs)
	hist.ObserveWithLabels(12, map[string]string{"code": "200"})

	families, err := prom.registry.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}
	require.Contains(t, byName, "npos_bonds_count")
	assert.Equal(t, float64(5), byName["npos_bonds_count"].Metric[0].GetCounter().GetValue())
	require.Contains(t, byName, "npos_era_gauge")
	assert.Equal(t, float64(8), byName["npos_era_gauge"].Metric[0].GetGauge().GetValue())
	require.Contains(t, byName, "npos_api_duration_ms")
	assert.Equal(t, uint64(1), byName["npos_api_duration_ms"].Metric[0].GetHistogram().GetSampleCount())

	srv := httptest.NewServer(prom.GetOrCreateHandler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "npos_bonds_count 5"))
}

func TestLazyLoad(t *testing.T) {
	calls := 0
	f := LazyLoad(func() int { calls++; return calls })
	assert.Equal(t, 1, f())
	assert.Equal(t, 1, f())
	assert.Equal(t, 1, calls)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashes_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/api/slashes"
	"github.com/vechain/npos/genesis"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/test/testnode"
)

var ts *httptest.Server

func TestSlashes(t *testing.T) {
	n, err := testnode.NewDefault()
	require.NoError(t, err)
	defer n.Close()

	accs := genesis.DevAccounts()
	_, err = n.Update(func(s *staking.Staking) error {
		return s.OnOffence(
			[]staking.OffenceDetails{{Offender: accs[0].Address, Reporters: []npos.Address{accs[7].Address}}},
			[]perthing.Perbill{perthing.PerbillFromPercent(10)},
			0,
		)
	})
	require.NoError(t, err)

	router := mux.NewRouter()
	slashes.New(n.Node).Mount(router, "/staking")
	ts = httptest.NewServer(router)
	defer ts.Close()

	t.Run("getUnapplied", testGetUnapplied)
	t.Run("getAllUnapplied", testGetAllUnapplied)
	t.Run("getValidatorSlash", testGetValidatorSlash)
	t.Run("getSpans", testGetSpans)
}

func httpGet(t *testing.T, url string, status int, v any) {
	res, err := http.Get(ts.URL + url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, status, res.StatusCode, string(body))
	if v != nil {
		require.NoError(t, json.Unmarshal(body, v))
	}
}

func testGetUnapplied(t *testing.T) {
	accs := genesis.DevAccounts()

	// deferred by two eras, applied at the start of the third
	var list []*slashes.Slash
	httpGet(t, "/staking/slashes/unapplied/3", http.StatusOK, &list)
	require.Len(t, list, 1)
	assert.Equal(t, accs[0].Address, list[0].Validator)
	assert.Equal(t, uint64(10_000_000_000), uint64(list[0].Own))
	assert.Len(t, list[0].Others, 3)
	assert.Equal(t, []npos.Address{accs[7].Address}, list[0].Reporters)

	httpGet(t, "/staking/slashes/unapplied/2", http.StatusOK, &list)
	assert.Empty(t, list)
}

func testGetAllUnapplied(t *testing.T) {
	var all []*slashes.EraSlashes
	httpGet(t, "/staking/slashes/unapplied", http.StatusOK, &all)
	require.Len(t, all, 1)
	assert.Equal(t, npos.EraIndex(3), all[0].Era)
	assert.Len(t, all[0].Slashes, 1)
}

func testGetValidatorSlash(t *testing.T) {
	validator := genesis.DevAccounts()[0].Address
	var vs slashes.ValidatorSlash
	httpGet(t, fmt.Sprintf("/staking/slashes/0/%v", validator), http.StatusOK, &vs)
	assert.Equal(t, perthing.PerbillFromPercent(10), vs.Fraction)
	assert.Equal(t, uint64(10_000_000_000), uint64(vs.Amount))

	httpGet(t, fmt.Sprintf("/staking/slashes/0/%v", genesis.DevAccounts()[1].Address), http.StatusNotFound, nil)
}

func testGetSpans(t *testing.T) {
	validator := genesis.DevAccounts()[0].Address
	var spans slashes.Spans
	httpGet(t, "/staking/spans/"+validator.String(), http.StatusOK, &spans)
	assert.Equal(t, validator, spans.Stash)
	require.NotEmpty(t, spans.Spans)
	assert.Nil(t, spans.Spans[0].Length)
	assert.Equal(t, spans.SpanIndex, spans.Spans[0].Index)

	var slashed uint64
	for _, s := range spans.Spans {
		slashed += uint64(s.Slashed)
	}
	assert.Equal(t, uint64(10_000_000_000), slashed)

	httpGet(t, "/staking/spans/"+genesis.DevAccounts()[1].Address.String(), http.StatusNotFound, nil)
}

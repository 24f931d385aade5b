// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/npos/api/utils"
	"github.com/vechain/npos/logdb"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
)

type Events struct {
	db    *logdb.LogDB
	limit uint64
}

func New(db *logdb.LogDB, logsLimit uint64) *Events {
	return &Events{
		db,
		logsLimit,
	}
}

func parseUint(query url.Values, name string, bits int) (uint64, bool, error) {
	s := query.Get(name)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, false, utils.BadRequest(errors.WithMessage(err, name))
	}
	return v, true, nil
}

// parseFilter reads the filter from the query: stash, kind (repeated or
// comma separated), unit (era or session), from, to, offset, limit, order.
func (e *Events) parseFilter(query url.Values) (*logdb.EventFilter, error) {
	filter := &logdb.EventFilter{Order: logdb.ASC}

	if s := query.Get("stash"); s != "" {
		stash, err := npos.ParseAddress(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "stash"))
		}
		filter.Stash = stash
	}
	for _, kinds := range query["kind"] {
		for _, k := range strings.Split(kinds, ",") {
			if k = strings.TrimSpace(k); k != "" {
				filter.Kinds = append(filter.Kinds, staking.EventKind(k))
			}
		}
	}

	from, hasFrom, err := parseUint(query, "from", 32)
	if err != nil {
		return nil, err
	}
	to, hasTo, err := parseUint(query, "to", 32)
	if err != nil {
		return nil, err
	}
	if hasFrom || hasTo {
		unit := logdb.RangeType(query.Get("unit"))
		switch unit {
		case "":
			unit = logdb.Session
		case logdb.Session, logdb.Era:
		default:
			return nil, utils.BadRequest(fmt.Errorf("unit: unknown range unit %q", unit))
		}
		if !hasTo {
			to = math.MaxUint32
		}
		if to < from {
			return nil, utils.BadRequest(errors.New("to must be greater than or equal to from"))
		}
		filter.Range = &logdb.Range{Unit: unit, From: uint32(from), To: uint32(to)}
	}

	switch order := logdb.Order(query.Get("order")); order {
	case "", logdb.ASC:
	case logdb.DESC:
		filter.Order = logdb.DESC
	default:
		return nil, utils.BadRequest(fmt.Errorf("order: unknown order %q", order))
	}

	offset, _, err := parseUint(query, "offset", 64)
	if err != nil {
		return nil, err
	}
	if offset > math.MaxInt64 {
		return nil, utils.BadRequest(fmt.Errorf("offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	limit, hasLimit, err := parseUint(query, "limit", 64)
	if err != nil {
		return nil, err
	}
	if limit > e.limit {
		return nil, utils.Forbidden(fmt.Errorf("limit exceeds the maximum allowed value of %d", e.limit))
	}
	if !hasLimit {
		// one more than allowed, to detect whether there are more events than the limit
		limit = e.limit + 1
	}
	filter.Options = &logdb.Options{Offset: offset, Limit: limit}
	return filter, nil
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	filter, err := e.parseFilter(req.URL.Query())
	if err != nil {
		return err
	}
	events, err := e.db.FilterEvents(req.Context(), filter)
	if err != nil {
		return err
	}
	// ensure the result size is less than the configured limit
	if uint64(len(events)) > e.limit {
		return utils.Forbidden(fmt.Errorf("the number of filtered events exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}
	result := make([]*FilteredEvent, 0, len(events))
	for _, ev := range events {
		result = append(result, convertEvent(ev))
	}
	return utils.WriteJSON(w, result)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /events").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}

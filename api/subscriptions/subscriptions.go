// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/npos/api/utils"
	"github.com/vechain/npos/metrics"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
)

var logger = log.New("pkg", "subscriptions")

func SetLogger(l log.Logger) {
	logger = l
}

var metricActiveCount = metrics.LazyLoadGaugeVec("api_active_websocket_count", []string{"subject"})

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 7) / 10
	// commits buffered per subscriber before the node blocks on it
	commitBuffer = 64
)

type Subscriptions struct {
	node     *node.Node
	upgrader *websocket.Upgrader
	cache    *messageCache
	done     chan struct{}
	wg       sync.WaitGroup
}

// EventMeta locates a streamed event.
type EventMeta struct {
	Era     npos.EraIndex     `json:"era"`
	Session npos.SessionIndex `json:"session"`
	Digest  npos.Bytes32      `json:"digest"`
}

type EventMessage struct {
	*staking.Event
	Meta EventMeta `json:"meta"`
}

// eventFilter matches events by stash and kind. Empty criteria match all.
type eventFilter struct {
	stash *npos.Address
	kinds []staking.EventKind
}

func (f *eventFilter) match(ev *staking.Event) bool {
	if f.stash != nil && ev.Stash != *f.stash {
		return false
	}
	return len(f.kinds) == 0 || slices.Contains(f.kinds, ev.Kind)
}

func New(n *node.Node, allowedOrigins []string, cacheSize uint32) *Subscriptions {
	return &Subscriptions{
		node: n,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == strings.ToLower(origin) {
						return true
					}
				}
				return false
			},
		},
		cache: newMessageCache(cacheSize),
		done:  make(chan struct{}),
	}
}

func parseFilter(req *http.Request) (*eventFilter, error) {
	query := req.URL.Query()
	filter := &eventFilter{}
	if s := query.Get("stash"); s != "" {
		stash, err := npos.ParseAddress(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "stash"))
		}
		filter.stash = stash
	}
	for _, kinds := range query["kind"] {
		for _, k := range strings.Split(kinds, ",") {
			if k = strings.TrimSpace(k); k != "" {
				filter.kinds = append(filter.kinds, staking.EventKind(k))
			}
		}
	}
	return filter, nil
}

func (s *Subscriptions) handleSubject(w http.ResponseWriter, req *http.Request) error {
	s.wg.Add(1)
	defer s.wg.Done()

	filter, err := parseFilter(req)
	if err != nil {
		return err
	}

	// subscribe before the upgrade so no commit is missed once connected
	commits := make(chan *node.Committed, commitBuffer)
	sub := s.node.Subscribe(commits)
	defer sub.Unsubscribe()

	conn, err := s.upgrader.Upgrade(w, req, nil)
	// since the conn is hijacked here, no error should be returned in lines below
	if err != nil {
		logger.Debug("upgrade to websocket", "err", err)
		return nil
	}
	metricActiveCount().AddWithLabel(1, map[string]string{"subject": "event"})
	defer metricActiveCount().AddWithLabel(-1, map[string]string{"subject": "event"})
	defer conn.Close()

	var closeMsg []byte
	if err := s.pipe(conn, commits, sub.Err(), filter); err != nil {
		closeMsg = websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
	} else {
		closeMsg = websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	}
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		logger.Debug("write close message", "err", err)
	}
	return nil
}

func (s *Subscriptions) pipe(conn *websocket.Conn, commits <-chan *node.Committed, subErr <-chan error, filter *eventFilter) error {
	closed := make(chan struct{})
	// start read loop to handle close event
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Debug("websocket read err", "err", err)
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return nil
		case <-closed:
			return nil
		case err := <-subErr:
			// nil when the node is closed
			return err
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case c := <-commits:
			for _, ev := range c.Events {
				if !filter.match(ev) {
					continue
				}
				msg, _, err := s.cache.GetOrAdd(ev, func() ([]byte, error) {
					return json.Marshal(&EventMessage{
						Event: ev,
						Meta:  EventMeta{Era: c.Era, Session: c.Session, Digest: c.Digest},
					})
				})
				if err != nil {
					return err
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return nil
				}
			}
		}
	}
}

// Close ends all active subscriptions. Their connections are hijacked and
// not tracked by the http server.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("WS /subscriptions/events").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubject))
}

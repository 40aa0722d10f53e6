package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/txchain/app/services/node/handlers"
	"github.com/ardanlabs/txchain/business/sys/metrics"
	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/txchain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/txchain/foundation/blockchain/state"
	"github.com/ardanlabs/txchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/txchain/foundation/events"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type node struct {
	public  http.Handler
	private http.Handler
	state   *state.State
}

func newNode(t *testing.T, origins ...string) node {
	t.Helper()

	st, err := state.New(context.Background(), state.Config{
		Beneficiary:    "miner1",
		Genesis:        genesis.Default(),
		Snapshot:       memory.New(),
		Store:          memory.New(),
		SelectStrategy: selector.StrategyFIFO,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	mtrs, err := metrics.New(prometheus.NewRegistry(), st)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the metrics: %v", failed, err)
	}

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		Metrics:  mtrs,
		State:    st,
		Evts:     events.New(),
		Origins:  origins,
	}

	return node{
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
		state:   st,
	}
}

func call(t *testing.T, h http.Handler, method string, path string, body any, resp any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("\t%s\tShould be able to encode the request: %v", failed, err)
		}
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if resp != nil && w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(resp); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the response: %v", failed, err)
		}
	}

	return w.Code
}

func Test_Transactions(t *testing.T) {
	t.Log("Given the need to submit and commit transactions over the api.")
	{
		n := newNode(t)

		var sub struct {
			TxHash string `json:"txHash"`
		}
		req := map[string]any{"id": "1", "from": "bill", "to": "ed", "value": 10}
		if code := call(t, n.public, http.MethodPost, "/v1/tx/submit", req, &sub); code != http.StatusOK || sub.TxHash == "" {
			t.Fatalf("\t%s\tShould submit a transaction, got %d.", failed, code)
		}
		t.Logf("\t%s\tShould submit a transaction.", success)

		if code := call(t, n.public, http.MethodPost, "/v1/tx/submit", map[string]any{"id": "2"}, nil); code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject an invalid transaction, got %d.", failed, code)
		}
		t.Logf("\t%s\tShould reject an invalid transaction.", success)

		var status struct {
			Status string `json:"status"`
		}
		call(t, n.public, http.MethodGet, "/v1/tx/status/"+sub.TxHash, nil, &status)
		if status.Status != "pending" {
			t.Fatalf("\t%s\tShould report the tx pending, got %q.", failed, status.Status)
		}
		t.Logf("\t%s\tShould report the tx pending.", success)

		var block database.BlockData
		if code := call(t, n.private, http.MethodPost, "/v1/blocks/assemble", nil, &block); code != http.StatusOK || block.Number != 1 {
			t.Fatalf("\t%s\tShould assemble block 1, got %d.", failed, code)
		}
		t.Logf("\t%s\tShould assemble block 1.", success)

		if code := call(t, n.private, http.MethodPost, "/v1/blocks/assemble", nil, nil); code != http.StatusNoContent {
			t.Fatalf("\t%s\tShould have nothing to assemble, got %d.", failed, code)
		}
		t.Logf("\t%s\tShould have nothing to assemble.", success)

		call(t, n.public, http.MethodGet, "/v1/tx/status/"+sub.TxHash, nil, &status)
		if status.Status != "committed" {
			t.Fatalf("\t%s\tShould report the tx committed, got %q.", failed, status.Status)
		}
		t.Logf("\t%s\tShould report the tx committed.", success)

		var blocks []database.BlockData
		if code := call(t, n.public, http.MethodGet, "/v1/blocks/list/0/latest", nil, &blocks); code != http.StatusOK || len(blocks) != 2 {
			t.Fatalf("\t%s\tShould list the blocks, got %d with %d.", failed, code, len(blocks))
		}

		if code := call(t, n.public, http.MethodGet, "/v1/blocks/list/0/9", nil, nil); code != http.StatusNotFound {
			t.Fatalf("\t%s\tShould not list past the height, got %d.", failed, code)
		}
		t.Logf("\t%s\tShould list the blocks.", success)

		var lookups []chain.Lookup
		call(t, n.public, http.MethodGet, "/v1/blocks/hash/"+block.Hash+",abcd", nil, &lookups)
		if len(lookups) != 2 || !lookups[0].Found || lookups[1].Found {
			t.Fatalf("\t%s\tShould look up blocks by hash, got %+v.", failed, lookups)
		}
		t.Logf("\t%s\tShould look up blocks by hash.", success)
	}
}

func Test_PeerTransactions(t *testing.T) {
	t.Log("Given the need to merge transactions from a peer.")
	{
		n := newNode(t)

		tx, err := database.NewTx("1", "bill", "ed", 5, "", n.state.Digest())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build a tx: %v", failed, err)
		}

		var resp struct {
			Added int `json:"added"`
		}
		txs := []database.Tx{tx, tx, {ID: "bad", TxHash: "abcd"}}
		if code := call(t, n.private, http.MethodPost, "/v1/tx/peer", txs, &resp); code != http.StatusOK || resp.Added != 1 {
			t.Fatalf("\t%s\tShould add the valid tx once, got %d added %d.", failed, code, resp.Added)
		}
		t.Logf("\t%s\tShould add the valid tx once.", success)

		var pending []database.Tx
		call(t, n.public, http.MethodGet, "/v1/tx/uncommitted/list", nil, &pending)
		if len(pending) != 1 || pending[0].TxHash != tx.TxHash {
			t.Fatalf("\t%s\tShould list the pending tx, got %+v.", failed, pending)
		}
		t.Logf("\t%s\tShould list the pending tx.", success)

		var status state.Status
		call(t, n.public, http.MethodGet, "/v1/chain/status", nil, &status)
		if status.Height != 0 || status.Pending != 1 || status.Digest != "keccak256" {
			t.Fatalf("\t%s\tShould report the chain status, got %+v.", failed, status)
		}
		t.Logf("\t%s\tShould report the chain status.", success)
	}
}

func Test_EventsOrigin(t *testing.T) {
	n := newNode(t, "http://ledger.local")

	srv := httptest.NewServer(n.public)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"

	tt := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed", "http://ledger.local", true},
		{"other", "http://elsewhere.local", false},
		{"none", "", true},
	}

	t.Log("Given the need to restrict the event stream to the configured origins.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				hdr := http.Header{}
				if tst.origin != "" {
					hdr.Set("Origin", tst.origin)
				}

				c, resp, err := websocket.DefaultDialer.Dial(url, hdr)
				if tst.ok {
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould connect to the event stream: %v", failed, testID, err)
					}
					c.Close()
					t.Logf("\t%s\tTest %d:\tShould connect to the event stream.", success, testID)
					return
				}

				if err == nil {
					c.Close()
					t.Fatalf("\t%s\tTest %d:\tShould refuse the origin.", failed, testID)
				}
				if resp == nil || resp.StatusCode != http.StatusForbidden {
					t.Fatalf("\t%s\tTest %d:\tShould refuse the origin with 403: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould refuse the origin.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/txchain/business/sys/validate"
	"github.com/ardanlabs/txchain/business/web/errs"
	"github.com/ardanlabs/txchain/business/web/mid"
	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/txchain/foundation/blockchain/state"
	"github.com/ardanlabs/txchain/foundation/events"
	"github.com/ardanlabs/txchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	State   *state.State
	WS      websocket.Upgrader
	Evts    *events.Events
	Origins []string
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Browsers must come from an allowed origin. Other clients send none.
	h.WS.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || mid.OriginAllowed(h.Origins, origin)
	}

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the ledger.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the ledger or ticker.
	for {
		select {
		case evt, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, evt.Encode()); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns the current position of the chain.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status, err := h.State.RetrieveStatus()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified from/to
// values. Either value can be "latest".
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := h.number(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := h.number(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocksByNumber(ctx, from, to)
	if err != nil {
		if errors.Is(err, chain.ErrOutOfRange) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlocksByHash returns the lookup result for a comma separated list of
// block hashes.
func (h Handlers) BlocksByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hashes := strings.Split(web.Param(r, "hash"), ",")

	lookups, err := h.State.QueryBlocksByHash(ctx, hashes...)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, lookups, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pending := h.State.RetrieveMempool()

	txs := make([]tx, len(pending))
	for i, dbTx := range pending {
		txs[i] = toTx(dbTx)
	}

	return web.Respond(ctx, w, txs, http.StatusOK)
}

// TransactionStatus returns the lifecycle status of a transaction.
func (h Handlers) TransactionStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	resp := txStatus{
		TxHash: hash,
		Status: string(h.State.QueryTransactionStatus(hash)),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds a new user transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx newTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(ntx); err != nil {
		return fmt.Errorf("validating data: %w", err)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "id", ntx.ID, "from", ntx.From, "to", ntx.To, "value", ntx.Value)

	dbTx, added, err := h.State.SubmitTransaction(toDBTx(ntx))
	if err != nil {
		switch {
		case errors.Is(err, state.ErrInvalidTxHash), errors.Is(err, mempool.ErrRejected):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, mempool.ErrCommitted):
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	resp := submitted{
		Status: "transaction added to mempool",
		TxHash: dbTx.TxHash,
	}
	if !added {
		resp.Status = "transaction already pending"
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// number converts a block number parameter, where latest is the current
// height of the chain.
func (h Handlers) number(s string) (uint64, error) {
	if s == "latest" || s == "" {
		height := h.State.RetrieveHeight()
		if height < 0 {
			return 0, chain.ErrOutOfRange
		}
		return uint64(height), nil
	}

	return strconv.ParseUint(s, 10, 64)
}

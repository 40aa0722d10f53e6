// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"net/http"

	"github.com/ardanlabs/txchain/business/sys/metrics"
	"github.com/ardanlabs/txchain/business/web/errs"
	"github.com/ardanlabs/txchain/foundation/blockchain/chain"
	"github.com/ardanlabs/txchain/foundation/blockchain/database"
	"github.com/ardanlabs/txchain/foundation/blockchain/state"
	"github.com/ardanlabs/txchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Metrics *metrics.Metrics
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status, err := h.State.RetrieveStatus()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions in their stored form
// so a peer can merge them.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs := h.State.RetrieveMempool()
	return web.Respond(ctx, w, txs, http.StatusOK)
}

// SubmitPeerTransactions merges transactions shared by a peer node into the
// mempool.
func (h Handlers) SubmitPeerTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Decode the JSON in the post call into a set of transactions.
	var txs []database.Tx
	if err := web.Decode(r, &txs); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	added := h.State.MergePeerTransactions(txs)

	h.Log.Infow("merge peer trans", "traceid", v.TraceID, "received", len(txs), "added", added)

	resp := struct {
		Received int `json:"received"`
		Added    int `json:"added"`
	}{
		Received: len(txs),
		Added:    added,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AssembleBlock builds the next block from the mempool and appends it to
// the chain.
func (h Handlers) AssembleBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.AssembleBlock(ctx)
	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoTransactions):
			return web.Respond(ctx, w, nil, http.StatusNoContent)

		case errors.Is(err, chain.ErrHeightConflict), errors.Is(err, chain.ErrInvalidParent):
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	h.Metrics.Assembled()

	return web.Respond(ctx, w, block.Record(), http.StatusOK)
}

// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/txchain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/txchain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/txchain/business/sys/metrics"
	"github.com/ardanlabs/txchain/foundation/blockchain/state"
	"github.com/ardanlabs/txchain/foundation/events"
	"github.com/ardanlabs/txchain/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log     *zap.SugaredLogger
	State   *state.State
	Evts    *events.Events
	Metrics *metrics.Metrics
	Origins []string
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:     cfg.Log,
		State:   cfg.State,
		Evts:    cfg.Evts,
		Origins: cfg.Origins,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/chain/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlocksByHash)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/tx/status/:hash", pbl.TransactionStatus)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:     cfg.Log,
		State:   cfg.State,
		Metrics: cfg.Metrics,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", prv.Mempool)
	app.Handle(http.MethodPost, version, "/tx/peer", prv.SubmitPeerTransactions)
	app.Handle(http.MethodPost, version, "/blocks/assemble", prv.AssembleBlock)
}

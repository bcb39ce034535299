package api

import (
	"context"
	"net/http"
	"time"

	"github.com/etherlabsio/healthcheck/v2"
	"github.com/filecoin-project/go-jsonrpc"
	"github.com/gorilla/mux"
)

// NewHandler mounts the json-rpc api at /rpc/v0 and the health check at
// /healthcheck.
func NewHandler(impl IEvmKitAPI, checker func(ctx context.Context) error) http.Handler {
	router := mux.NewRouter()

	rpcServer := jsonrpc.NewServer()
	rpcServer.Register(Namespace, impl)
	router.Handle("/rpc/v0", rpcServer)

	router.Handle("/healthcheck", healthcheck.Handler(
		healthcheck.WithTimeout(5*time.Second),
		healthcheck.WithChecker("evmkit", healthcheck.CheckerFunc(checker)),
	))

	return router
}

package apis

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alwitt/goutils"
	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/jmazzahacks/api-gatekeeper/authorize"
	"github.com/jmazzahacks/api-gatekeeper/common"
)

/*
BuildMetricsCollectionServer create server to host metrics collection endpoint

	@param httpCfg common.HTTPServerConfig - HTTP server configuration
	@param metricsCollector goutils.MetricsCollector - metrics collector
	@param collectionEndpoint string - endpoint to expose the metrics on
	@param maxRESTRequests int - max number fo parallel requests to support
	@returns HTTP server instance
*/
func BuildMetricsCollectionServer(
	httpCfg common.HTTPServerConfig,
	metricsCollector goutils.MetricsCollector,
	collectionEndpoint string,
	maxRESTRequests int,
) (*http.Server, error) {
	router := mux.NewRouter()
	metricsCollector.ExposeCollectionEndpoint(router, collectionEndpoint, maxRESTRequests)

	serverListen := fmt.Sprintf(
		"%s:%d", httpCfg.ListenOn, httpCfg.Port,
	)
	httpSrv := &http.Server{
		Addr:         serverListen,
		WriteTimeout: time.Second * time.Duration(httpCfg.Timeouts.WriteTimeout),
		ReadTimeout:  time.Second * time.Duration(httpCfg.Timeouts.ReadTimeout),
		IdleTimeout:  time.Second * time.Duration(httpCfg.Timeouts.IdleTimeout),
		Handler:      h2c.NewHandler(router, &http2.Server{}),
	}

	return httpSrv, nil
}

// ====================================================================================
// Authorization Server

/*
BuildAuthorizationServer creates the subrequest authorization server

	@param httpCfg common.APIServerConfig - HTTP server config
	@param core *authorize.Authorizer - the authorization decision engine
	@param checkHeaders common.AuthorizeRequestParamLocConfig - param on which headers to search for
	the subrequest's domain/path/method
	@param store Pinger - the store to confirm reachable on a readiness check
	@param metrics goutils.HTTPRequestMetricHelper - metric collection agent
	@return the http.Server
*/
func BuildAuthorizationServer(
	httpCfg common.APIServerConfig,
	core *authorize.Authorizer,
	checkHeaders common.AuthorizeRequestParamLocConfig,
	store Pinger,
	metrics goutils.HTTPRequestMetricHelper,
) (*http.Server, error) {
	coreHandler := defineAuthorizationHandler(httpCfg.APIs.RequestLogging, core, checkHeaders, metrics)
	livenessHandler := defineAuthorizationLivenessHandler(httpCfg.APIs.RequestLogging, store)

	router := mux.NewRouter()
	mainRouter := registerPathPrefix(router, httpCfg.APIs.Endpoint.PathPrefix, nil)
	livenessRouter := registerPathPrefix(mainRouter, "/liveness", nil)
	v1Router := registerPathPrefix(mainRouter, "/v1", nil)

	// Authorize
	_ = registerPathPrefix(v1Router, "/allow", map[string]http.HandlerFunc{
		"get": coreHandler.AllowHandler(),
	})

	// Health check
	_ = registerPathPrefix(livenessRouter, "/alive", map[string]http.HandlerFunc{
		"get": livenessHandler.AliveHandler(),
	})
	_ = registerPathPrefix(livenessRouter, "/ready", map[string]http.HandlerFunc{
		"get": livenessHandler.ReadyHandler(),
	})

	// Add logging middleware
	v1Router.Use(func(next http.Handler) http.Handler {
		return coreHandler.LoggingMiddleware(next.ServeHTTP)
	})
	livenessRouter.Use(func(next http.Handler) http.Handler {
		return livenessHandler.LoggingMiddleware(next.ServeHTTP)
	})

	// Add request parameter extract middleware
	v1Router.Use(func(next http.Handler) http.Handler {
		return coreHandler.ParamReadMiddleware(next.ServeHTTP)
	})

	serverListen := fmt.Sprintf(
		"%s:%d", httpCfg.Server.ListenOn, httpCfg.Server.Port,
	)
	httpSrv := &http.Server{
		Addr:         serverListen,
		WriteTimeout: time.Second * time.Duration(httpCfg.Server.Timeouts.WriteTimeout),
		ReadTimeout:  time.Second * time.Duration(httpCfg.Server.Timeouts.ReadTimeout),
		IdleTimeout:  time.Second * time.Duration(httpCfg.Server.Timeouts.IdleTimeout),
		Handler:      h2c.NewHandler(router, &http2.Server{}),
	}

	return httpSrv, nil
}

package apis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/alwitt/goutils"
	"github.com/apex/log"

	"github.com/jmazzahacks/api-gatekeeper/authorize"
	"github.com/jmazzahacks/api-gatekeeper/common"
	"github.com/jmazzahacks/api-gatekeeper/model"
)

// Header names the adapter writes on an allow decision (spec.md §6.1).
const (
	HeaderAuthClientID   = "X-Auth-Client-ID"
	HeaderAuthClientName = "X-Auth-Client-Name"
	HeaderAuthRouteID    = "X-Auth-Route-ID"
	// HeaderDenyReason carries the ReasonTag on a deny or internal_error response.
	HeaderDenyReason = "X-Auth-Reason"
)

// AuthorizationHandler is the subrequest authorization REST API handler. It
// owns no decision logic: every call is delegated to the embedded Authorizer.
type AuthorizationHandler struct {
	goutils.RestAPIHandler
	core         *authorize.Authorizer
	checkHeaders common.AuthorizeRequestParamLocConfig
}

// defineAuthorizationHandler defines a new AuthorizationHandler instance.
func defineAuthorizationHandler(
	logConfig common.HTTPRequestLogging,
	core *authorize.Authorizer,
	checkHeaders common.AuthorizeRequestParamLocConfig,
	metrics goutils.HTTPRequestMetricHelper,
) AuthorizationHandler {
	logTags := log.Fields{
		"module": "apis", "component": "api-handler", "instance": "authorization",
	}

	return AuthorizationHandler{
		RestAPIHandler: goutils.RestAPIHandler{
			Component: goutils.Component{
				LogTags: logTags,
				LogTagModifiers: []goutils.LogMetadataModifier{
					goutils.ModifyLogMetadataByRestRequestParam,
					common.ModifyLogMetadataByAuthorizeRequestParam,
				},
			},
			CallRequestIDHeaderField: &logConfig.RequestIDHeader,
			DoNotLogHeaders: func() map[string]bool {
				result := map[string]bool{}
				for _, v := range logConfig.DoNotLogHeaders {
					result[v] = true
				}
				return result
			}(),
			MetricsHelper: metrics,
		},
		core:         core,
		checkHeaders: checkHeaders,
	}
}

// ParamReadMiddleware extracts the subrequest's domain/path/method from the
// headers the edge proxy set (spec.md §6.1) and stashes them in the request
// context, both for the handler and for log enrichment.
func (h AuthorizationHandler) ParamReadMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		params := common.AuthorizeRequestParam{
			Domain: normalizeDomain(r.Header.Get(h.checkHeaders.OriginalHostHeader)),
			Path:   r.Header.Get(h.checkHeaders.OriginalPathHeader),
			Method: strings.ToUpper(r.Header.Get(h.checkHeaders.OriginalMethodHeader)),
		}
		ctxt := context.WithValue(r.Context(), common.AuthorizeRequestParamKey{}, params)
		next(rw, r.WithContext(ctxt))
	}
}

// normalizeDomain strips a ":port" suffix and lowercases, per spec.md §6.1.
func normalizeDomain(host string) string {
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		if _, err := strconv.Atoi(host[idx+1:]); err == nil {
			host = host[:idx]
		}
	}
	return strings.ToLower(host)
}

// ====================================================================================
// Authorization

// Allow godoc
// @Summary Check whether a subrequest should be forwarded
// @Description Runs the authorization pipeline against the subrequest described by the
// configured headers, returning 200 (with identifying headers) on allow, 403 on deny, and
// 500 on an internal error.
// @tags Authorize
// @Produce json
// @Param Gatekeeper-Request-ID header string false "User provided request ID to match against logs"
// @Param X-Original-Host header string true "Host of the request to authorize"
// @Param X-Original-URI header string true "Path of the request to authorize"
// @Param X-Original-Method header string true "HTTP method of the request to authorize"
// @Success 200 "allowed"
// @Failure 403 "denied"
// @Failure 500 "internal error"
// @Router /v1/allow [get]
func (h AuthorizationHandler) Allow(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	respHeaders := map[string]string{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, respHeaders); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	params, ok := r.Context().Value(common.AuthorizeRequestParamKey{}).(common.AuthorizeRequestParam)
	if !ok {
		msg := "can't run authorization check"
		err := fmt.Errorf("authorize: ParamReadMiddleware did not run")
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		msg := "failed to read request body"
		log.WithError(err).WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	query := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	decision := h.core.Authorize(r.Context(), authorize.Request{
		Domain:  params.Domain,
		Path:    params.Path,
		Method:  params.Method,
		Headers: r.Header,
		Query:   query,
		Body:    body,
	})

	respCode, response = writeDecisionResponse(h.RestAPIHandler, r.Context(), decision, respHeaders, logTags)
}

// writeDecisionResponse maps a Decision onto a REST response body and
// response headers per spec.md §6.1/§7, populating headers in place since
// the caller already owns the map handed to WriteRESTResponse.
func writeDecisionResponse(
	h goutils.RestAPIHandler,
	ctx context.Context,
	decision model.Decision,
	headers map[string]string,
	logTags log.Fields,
) (int, interface{}) {
	if decision.Allowed {
		headers[HeaderAuthRouteID] = decision.RouteID
		if decision.ClientID != "" {
			headers[HeaderAuthClientID] = decision.ClientID
		}
		if decision.ClientName != "" {
			headers[HeaderAuthClientName] = decision.ClientName
		}
		return http.StatusOK, h.GetStdRESTSuccessMsg(ctx)
	}

	headers[HeaderDenyReason] = string(decision.Reason)

	if decision.Reason == model.ReasonInternalError {
		log.WithFields(logTags).WithField("sub_reason", decision.SubReason).
			Error("authorize: internal_error decision")
		msg := fmt.Sprintf("internal error: %s", decision.SubReason)
		return http.StatusInternalServerError,
			h.GetStdRESTErrorMsg(ctx, http.StatusInternalServerError, msg, string(decision.SubReason))
	}

	msg := fmt.Sprintf("denied: %s", decision.Reason)
	return http.StatusForbidden, h.GetStdRESTErrorMsg(ctx, http.StatusForbidden, msg, string(decision.Reason))
}

// AllowHandler wraps Allow as an http.HandlerFunc.
func (h AuthorizationHandler) AllowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Allow(w, r)
	}
}

// ====================================================================================
// Liveness / Readiness

// Pinger is implemented by anything the liveness handler must confirm is
// reachable before reporting ready (spec.md §9: the store is an external
// collaborator whose health the adapter should surface).
type Pinger interface {
	Ping(ctx context.Context) error
}

// AuthorizationLivenessHandler is the authorization REST API liveness/readiness handler.
type AuthorizationLivenessHandler struct {
	goutils.RestAPIHandler
	store Pinger
}

func defineAuthorizationLivenessHandler(
	logConfig common.HTTPRequestLogging, store Pinger,
) AuthorizationLivenessHandler {
	logTags := log.Fields{
		"module": "apis", "component": "api-handler", "instance": "authorization-liveness",
	}

	return AuthorizationLivenessHandler{
		RestAPIHandler: goutils.RestAPIHandler{
			Component: goutils.Component{
				LogTags: logTags,
				LogTagModifiers: []goutils.LogMetadataModifier{
					goutils.ModifyLogMetadataByRestRequestParam,
				},
			},
			CallRequestIDHeaderField: &logConfig.RequestIDHeader,
		},
		store: store,
	}
}

// Alive godoc
// @Summary Authorization API liveness check
// @tags Authorize
// @Produce json
// @Success 200 "success"
// @Router /liveness/alive [get]
func (h AuthorizationLivenessHandler) Alive(w http.ResponseWriter, r *http.Request) {
	logTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to form response")
	}
}

// AliveHandler wraps Alive.
func (h AuthorizationLivenessHandler) AliveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Alive(w, r)
	}
}

// Ready godoc
// @Summary Authorization API readiness check
// @tags Authorize
// @Produce json
// @Success 200 "success"
// @Failure 500 "not ready"
// @Router /liveness/ready [get]
func (h AuthorizationLivenessHandler) Ready(w http.ResponseWriter, r *http.Request) {
	var respCode int
	var response interface{}
	logTags := h.GetLogTagsForContext(r.Context())
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, response, nil); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to form response")
		}
	}()

	if h.store == nil {
		respCode = http.StatusOK
		response = h.GetStdRESTSuccessMsg(r.Context())
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		log.WithError(err).WithFields(logTags).Error("authorize: readiness check failed")
		respCode = http.StatusInternalServerError
		response = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, "not ready", err.Error())
		return
	}
	respCode = http.StatusOK
	response = h.GetStdRESTSuccessMsg(r.Context())
}

// ReadyHandler wraps Ready.
func (h AuthorizationLivenessHandler) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Ready(w, r)
	}
}

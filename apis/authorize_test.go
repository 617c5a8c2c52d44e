package apis

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jmazzahacks/api-gatekeeper/authorize"
	"github.com/jmazzahacks/api-gatekeeper/clock"
	"github.com/jmazzahacks/api-gatekeeper/common"
	"github.com/jmazzahacks/api-gatekeeper/model"
	"github.com/jmazzahacks/api-gatekeeper/repository"
)

func TestAuthorizationAllow(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	repo := repository.NewFake()
	apiKey := uuid.New().String()
	repo.PutClient(model.Client{ID: "client1", Name: "Test Client", APIKey: &apiKey, Status: model.ClientStatusActive})
	repo.PutRoute(model.Route{
		ID: "route1", Pattern: "/path1/*", Domain: "api.unit-test.org",
		Methods: map[string]model.MethodPolicy{
			"GET": {AuthRequired: true, AuthType: model.AuthTypeKey},
			"PUT": {AuthRequired: false},
		},
	})
	repo.PutPermission(model.Permission{
		ClientID: "client1", RouteID: "route1", AllowedMethods: map[string]bool{"GET": true},
	})

	core := authorize.New(repo, clock.NewFrozen(time.Now()), authorize.Config{})

	checkHeaders := common.AuthorizeRequestParamLocConfig{
		OriginalHostHeader:   "X-Original-Host",
		OriginalPathHeader:   "X-Original-URI",
		OriginalMethodHeader: "X-Original-Method",
	}
	requestIDHeader := "Gatekeeper-Unit-Tester"

	uut := defineAuthorizationHandler(
		common.HTTPRequestLogging{DoNotLogHeaders: []string{}, RequestIDHeader: requestIDHeader},
		core, checkHeaders, nil,
	)
	livness := defineAuthorizationLivenessHandler(
		common.HTTPRequestLogging{DoNotLogHeaders: []string{}, RequestIDHeader: requestIDHeader}, nil,
	)

	checkHeader := func(w http.ResponseWriter, reqID string) {
		_, _, ln, ok := runtime.Caller(2)
		assert.True(ok)
		assert.Equalf(reqID, w.Header().Get(requestIDHeader), "Called@%d", ln)
	}

	// Case 0: readiness
	{
		rid := uuid.New().String()
		req, err := http.NewRequest("GET", "/v1/ready", nil)
		assert.Nil(err)
		req.Header.Add(requestIDHeader, rid)

		respRecorder := httptest.NewRecorder()
		handler := livness.LoggingMiddleware(livness.ReadyHandler())
		handler.ServeHTTP(respRecorder, req)

		assert.Equal(http.StatusOK, respRecorder.Code)
		checkHeader(respRecorder, rid)
	}

	type testCase struct {
		host, path, method, apiKey string
		status                     int
		// reason, when set, must appear verbatim in the response body; only
		// meaningful for deny/internal_error cases.
		reason model.ReasonTag
	}
	executeTest := func(tc testCase) {
		_, _, ln, ok := runtime.Caller(1)
		assert.True(ok)

		rid := uuid.New().String()
		req, err := http.NewRequest("GET", "/v1/allow", nil)
		assert.Nilf(err, "Called@%d", ln)
		req.Header.Add(requestIDHeader, rid)
		req.Header.Add(checkHeaders.OriginalHostHeader, tc.host)
		req.Header.Add(checkHeaders.OriginalPathHeader, tc.path)
		req.Header.Add(checkHeaders.OriginalMethodHeader, tc.method)
		if tc.apiKey != "" {
			req.Header.Add("Authorization", "ApiKey "+tc.apiKey)
		}

		respRecorder := httptest.NewRecorder()
		handler := uut.LoggingMiddleware(uut.ParamReadMiddleware(uut.AllowHandler()))
		handler.ServeHTTP(respRecorder, req)

		assert.Equalf(tc.status, respRecorder.Code, "Called@%d", ln)
		checkHeader(respRecorder, rid)
		if tc.reason != "" {
			assert.Containsf(respRecorder.Body.String(), string(tc.reason), "Called@%d", ln)
			assert.Equalf(string(tc.reason), respRecorder.Header().Get(HeaderDenyReason), "Called@%d", ln)
		}
	}

	// Case 1: public method never needs a credential
	executeTest(testCase{
		host: "api.unit-test.org", path: "/path1/abc", method: "PUT", status: http.StatusOK,
	})

	// Case 2: protected method, missing credential
	executeTest(testCase{
		host: "api.unit-test.org", path: "/path1/abc", method: "GET", status: http.StatusForbidden,
		reason: model.ReasonMissingCredentials,
	})

	// Case 3: protected method, valid key
	executeTest(testCase{
		host: "api.unit-test.org", path: "/path1/abc", method: "GET", apiKey: apiKey,
		status: http.StatusOK,
	})

	// Case 4: valid key, but method not granted by permission
	repo.PutRoute(model.Route{
		ID: "route1", Pattern: "/path1/*", Domain: "api.unit-test.org",
		Methods: map[string]model.MethodPolicy{
			"GET":    {AuthRequired: true, AuthType: model.AuthTypeKey},
			"DELETE": {AuthRequired: true, AuthType: model.AuthTypeKey},
			"PUT":    {AuthRequired: false},
		},
	})
	executeTest(testCase{
		host: "api.unit-test.org", path: "/path1/abc", method: "DELETE", apiKey: apiKey,
		status: http.StatusForbidden, reason: model.ReasonMethodNotAllowed,
	})

	// Case 5: no route matches at all
	executeTest(testCase{
		host: "other.unit-test.org", path: "/path1/abc", method: "GET", status: http.StatusForbidden,
		reason: model.ReasonNoRoute,
	})

	// Case 6: domain normalization strips the port before matching
	executeTest(testCase{
		host: "api.unit-test.org:8443", path: "/path1/abc", method: "GET", apiKey: apiKey,
		status: http.StatusOK,
	})
}

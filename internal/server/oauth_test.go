package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// newCallbackHandler wires an OAuthHandler against a fake token endpoint.
func newCallbackHandler(t *testing.T, state string) *OAuthHandler {
	t.Helper()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-123","refresh_token":"rt-456","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenServer.Close)

	config := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenServer.URL},
	}
	return NewOAuthHandler(config, state)
}

func TestOAuthHandler(t *testing.T) {
	t.Run("routes", func(t *testing.T) {
		handler := newCallbackHandler(t, "s")
		routes := handler.Routes()
		if len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("expected [/callback], got %v", routes)
		}
	})

	t.Run("successful callback delivers token", func(t *testing.T) {
		handler := newCallbackHandler(t, "expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=auth-code", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Errorf("expected success page, got %s", rec.Body.String())
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token == nil || result.Token.AccessToken != "at-123" {
			t.Errorf("expected exchanged token, got %+v", result.Token)
		}
	})

	t.Run("state mismatch delivers error", func(t *testing.T) {
		handler := newCallbackHandler(t, "expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=auth-code", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "invalid state") {
			t.Errorf("expected state error, got %v", result.Error())
		}
	})

	t.Run("denied authorization delivers error", func(t *testing.T) {
		handler := newCallbackHandler(t, "expected-state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&error=access_denied", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected authorization error, got %v", result.Error())
		}
	})

	t.Run("second callback is rejected", func(t *testing.T) {
		handler := newCallbackHandler(t, "expected-state")

		first := httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=auth-code", nil)
		handler.ServeHTTP(httptest.NewRecorder(), first)

		second := httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=auth-code", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, second)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on repeat callback, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "already processed") {
			t.Errorf("expected repeat rejection, got %s", rec.Body.String())
		}
	})
}

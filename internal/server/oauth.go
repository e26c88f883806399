package server

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// OAuthResult carries the outcome of the one-shot CLI authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler receives the provider's authorization-code callback during
// `moodmix auth login`, exchanges the code, and delivers the token to the
// waiting command over Result. The callback is honored exactly once.
type OAuthHandler struct {
	config     *oauth2.Config
	state      string
	resultChan chan OAuthResult
	once       sync.Once
	mu         sync.Mutex
	redeemed   bool
}

// NewOAuthHandler creates an OAuthHandler expecting the given state token.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates the callback, exchanges the code, and reports the
// result both to the browser and to the channel the CLI is blocked on.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.redeem() {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	token, err := h.exchange(r)
	if err != nil {
		h.deliver(OAuthResult{err: err})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.deliver(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, resultPage("Authorization Successful", "You can close this window and return to moodmix."))
}

// exchange checks the state and error parameters, then trades the code for a token.
func (h *OAuthHandler) exchange(r *http.Request) (*oauth2.Token, error) {
	query := r.URL.Query()

	if query.Get("state") != h.state {
		return nil, fmt.Errorf("invalid state parameter")
	}

	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("authorization failed: %s - %s",
			query.Get("error"), query.Get("error_description"))
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// redeem consumes the single callback slot, returning false on repeat hits.
func (h *OAuthHandler) redeem() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.redeemed {
		return false
	}
	h.redeemed = true
	return true
}

// deliver sends the result exactly once and closes the channel.
func (h *OAuthHandler) deliver(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel the flow's single outcome arrives on.
//
// The channel receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

// resultPage renders the minimal HTML shown in the user's browser after a
// login flow finishes. Shared by the CLI callback and the server login flow.
func resultPage(heading, detail string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .card { text-align: center; background: white; padding: 2rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
        code { background: #eee; padding: 2px 6px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="card">
        <h1>✓ %s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`, heading, heading, detail)
}

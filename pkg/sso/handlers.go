package sso

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/handoff/pkg/contextkeys"
	"github.com/platinummonkey/handoff/pkg/httputil"
	"github.com/platinummonkey/handoff/pkg/observability"
)

// Defaults for HandlersConfig. ClientPlaceholder in SuccessURL is replaced with the
// path-escaped client name.
const (
	ClientPlaceholder = "{client}"
	DefaultSuccessURL = "/sso/" + ClientPlaceholder + "/continue"
	DefaultLandingURL = "/"
)

// ProfileSink hands a freshly created profile to the host session layer. Returning
// an error aborts the login and sends the browser back to the login form.
type ProfileSink func(ctx context.Context, w http.ResponseWriter, r *http.Request, profile *Profile) error

// HandlersConfig configures the HTTP surface shared by all registered clients
type HandlersConfig struct {
	// BaseURL is the externally visible root used to build handoff URLs
	BaseURL string

	// SuccessURL receives the browser after a successful callback. The continuation
	// cookie carries no Path, so only targets under /sso/{client}/ can read it.
	SuccessURL string

	// DefaultURL is used by the continue endpoint when no trusted target is saved
	DefaultURL string

	// CookieName is the continuation cookie read for providers that do not name their own
	CookieName string

	// AllowedRedirectHosts lists hosts accepted as absolute continuation targets
	AllowedRedirectHosts []string

	// IssuerSecret enables the token issue endpoint when set
	IssuerSecret string
}

func (c HandlersConfig) withDefaults() HandlersConfig {
	if c.SuccessURL == "" {
		c.SuccessURL = DefaultSuccessURL
	}
	if c.DefaultURL == "" {
		c.DefaultURL = DefaultLandingURL
	}
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// IssuerBinding pairs an issuer with the client whose callback redeems its tokens
type IssuerBinding struct {
	Client ClientConfig
	Issuer *Issuer
}

type issuerEntry struct {
	issuer *Issuer
	cfg    ClientConfig
}

// Handlers exposes registered clients over HTTP
type Handlers struct {
	registry *Registry
	creator  ProfileCreator
	mu       sync.RWMutex
	issuers  map[string]issuerEntry
	sink     ProfileSink
	cfg      HandlersConfig
	logger   *observability.Logger
	recorder observability.Recorder
}

// HandlersOption customizes Handlers
type HandlersOption func(*Handlers)

// WithHandlersLogger sets the handlers logger
func WithHandlersLogger(logger *observability.Logger) HandlersOption {
	return func(h *Handlers) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHandlersRecorder sets the metrics recorder
func WithHandlersRecorder(recorder observability.Recorder) HandlersOption {
	return func(h *Handlers) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// WithProfileSink sets the host session hook
func WithProfileSink(sink ProfileSink) HandlersOption {
	return func(h *Handlers) {
		h.sink = sink
	}
}

// WithIssuer exposes issuer on the token issue endpoint of the client named by cfg
func WithIssuer(cfg ClientConfig, issuer *Issuer) HandlersOption {
	return func(h *Handlers) {
		h.issuers[cfg.Name] = issuerEntry{issuer: issuer, cfg: cfg.WithDefaults()}
	}
}

// ReplaceIssuers swaps the issuers exposed on the token issue endpoint
func (h *Handlers) ReplaceIssuers(bindings ...IssuerBinding) {
	next := make(map[string]issuerEntry, len(bindings))
	for _, b := range bindings {
		next[b.Client.Name] = issuerEntry{issuer: b.Issuer, cfg: b.Client.WithDefaults()}
	}

	h.mu.Lock()
	h.issuers = next
	h.mu.Unlock()
}

// NewHandlers creates the SSO HTTP handlers
func NewHandlers(registry *Registry, creator ProfileCreator, cfg HandlersConfig, opts ...HandlersOption) *Handlers {
	if creator == nil {
		creator = NewUsernameProfileCreator()
	}
	h := &Handlers{
		registry: registry,
		creator:  creator,
		issuers:  make(map[string]issuerEntry),
		cfg:      cfg.withDefaults(),
		logger:   observability.NewLogger(observability.InfoLevel, nil),
		recorder: observability.NopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers SSO routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sso/{client}/login", h.initiateLogin).Methods("GET")
	router.HandleFunc("/sso/{client}/continue", h.continueLogin).Methods("GET")
	router.HandleFunc("/sso/{client}/callback", h.handleCallback).Methods("GET", "POST")

	if h.cfg.IssuerSecret != "" {
		router.HandleFunc("/sso/{client}/tokens", h.issueToken).Methods("POST")
	}
}

// initiateLogin handles GET /sso/{client}/login
func (h *Handlers) initiateLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}
	provider.InitiateRedirect(w, r)
}

// handleCallback handles GET/POST /sso/{client}/callback
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}
	r = r.WithContext(contextkeys.WithSSOClient(r.Context(), provider.Name()))

	if provider.RedirectNeeded(r) {
		provider.InitiateRedirect(w, r)
		return
	}

	creds, err := provider.HandleCallback(w, r)
	if err != nil {
		var redirect *RedirectError
		if errors.As(err, &redirect) {
			http.Redirect(w, r, redirect.URL, http.StatusFound)
			return
		}
		h.logger.WithError(err).WithField("sso_client", provider.Name()).Error("Unexpected callback failure")
		provider.InitiateRedirect(w, r)
		return
	}

	profile, err := h.creator.Create(creds)
	if err != nil {
		h.logger.WithError(err).WithField("sso_client", provider.Name()).Error("Failed to create profile")
		provider.InitiateRedirect(w, r)
		return
	}

	r = r.WithContext(contextkeys.WithUserID(r.Context(), profile.ID))

	if h.sink != nil {
		if err := h.sink(r.Context(), w, r, profile); err != nil {
			h.logger.WithError(err).WithField("sso_client", provider.Name()).Error("Session layer rejected profile")
			provider.InitiateRedirect(w, r)
			return
		}
	}

	observability.FromContext(r.Context()).Info("SSO handshake completed")

	http.Redirect(w, r, h.successURL(provider.Name()), http.StatusFound)
}

// continueLogin handles GET /sso/{client}/continue: it consumes the continuation
// cookie and sends the browser to the saved target
func (h *Handlers) continueLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}

	name := h.cfg.CookieName
	if named, ok := provider.(interface{ CookieName() string }); ok {
		name = named.CookieName()
	}

	target := h.cfg.DefaultURL
	if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
		// matches the default path browsers give a cookie set by the callback
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: clientPath(provider.Name()), MaxAge: -1})

		if h.trustedRedirect(cookie.Value) {
			target = cookie.Value
		} else {
			h.logger.WithField("target", cookie.Value).Warn("Discarding untrusted continuation target")
		}
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handlers) successURL(client string) string {
	return strings.ReplaceAll(h.cfg.SuccessURL, ClientPlaceholder, url.PathEscape(client))
}

func clientPath(client string) string {
	return "/sso/" + url.PathEscape(client)
}

type issueRequest struct {
	UID      string `json:"uid"`
	Redirect string `json:"redirect,omitempty"`
}

type issueResponse struct {
	Token      string `json:"token"`
	ExpiresIn  int64  `json:"expires_in"`
	HandoffURL string `json:"handoff_url,omitempty"`
}

// issueToken handles POST /sso/{client}/tokens, the identity provider's entry point
// for depositing a token
func (h *Handlers) issueToken(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedIssuer(r) {
		httputil.WriteUnauthorized(w, "invalid issuer credentials")
		return
	}

	name, ok := httputil.ParsePathStringOrError(w, r, "client")
	if !ok {
		return
	}
	h.mu.RLock()
	entry, exists := h.issuers[name]
	h.mu.RUnlock()
	if !exists {
		httputil.WriteNotFoundError(w, "sso client not found")
		return
	}

	var req issueRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, strings.TrimSpace(req.UID), "uid") {
		return
	}

	tok, err := entry.issuer.Issue(r.Context(), req.UID)
	if err != nil {
		h.logger.WithError(err).WithField("sso_client", name).Error("Failed to issue token")
		httputil.WriteServiceUnavailable(w, "token store unavailable")
		return
	}
	h.recorder.RecordTokenIssued(r.Context(), name)

	resp := issueResponse{
		Token:     tok.Token,
		ExpiresIn: int64(entry.issuer.TTL().Seconds()),
	}
	if req.Redirect != "" {
		callback := h.cfg.BaseURL + clientPath(name) + "/callback"
		handoff, err := HandoffURL(callback, entry.cfg, tok.Token, req.Redirect)
		if err != nil {
			h.logger.WithError(err).WithField("sso_client", name).Error("Failed to build handoff URL")
			httputil.WriteInternalError(w)
			return
		}
		resp.HandoffURL = handoff
	}

	if err := httputil.WriteJSON(w, http.StatusCreated, resp); err != nil {
		h.logger.WithError(err).WithField("sso_client", name).Warn("Failed to write token response")
	}
}

func (h *Handlers) authorizedIssuer(r *http.Request) bool {
	secret, ok := httputil.BearerToken(r)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.IssuerSecret)) == 1
}

func (h *Handlers) provider(w http.ResponseWriter, r *http.Request) (Provider, bool) {
	name := mux.Vars(r)["client"]
	provider, err := h.registry.Get(name)
	if err != nil {
		httputil.WriteNotFoundError(w, "sso client not found")
		return nil, false
	}
	return provider, true
}

// trustedRedirect accepts same-application paths and absolute http(s) URLs whose host
// is explicitly allowed
func (h *Handlers) trustedRedirect(target string) bool {
	if strings.HasPrefix(target, "/") {
		return !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	for _, allowed := range h.cfg.AllowedRedirectHosts {
		if strings.EqualFold(u.Hostname(), allowed) {
			return true
		}
	}
	return false
}

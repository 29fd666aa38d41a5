package sso

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/handoff/pkg/observability"
)

const tracerName = "github.com/platinummonkey/handoff/pkg/sso"

// Client drives the redirect handshake for one configured mechanism. It serves both
// legs: sending a browser to the login form, and redeeming the token the identity
// provider sends back.
//
// A Client keeps no state between requests; every call to HandleCallback runs one
// complete traversal and all cross-request state lives in the token store. It is
// safe for concurrent use.
type Client struct {
	cfg           ClientConfig
	loginURL      *url.URL
	store         TokenStore
	authenticator Authenticator
	logger        *observability.Logger
	recorder      observability.Recorder
	tracer        trace.Tracer
}

// ClientOption customizes a Client at construction
type ClientOption func(*Client)

// WithLogger sets the client logger
func WithLogger(logger *observability.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder observability.Recorder) ClientOption {
	return func(c *Client) {
		if recorder != nil {
			c.recorder = recorder
		}
	}
}

// WithAuthenticator replaces the default CacheAuthenticator
func WithAuthenticator(a Authenticator) ClientOption {
	return func(c *Client) {
		if a != nil {
			c.authenticator = a
		}
	}
}

// WithTracer sets the tracer used for handshake spans
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewClient creates a client. It refuses to build from an invalid configuration, so
// configuration mistakes surface at startup rather than per request.
func NewClient(cfg ClientConfig, store TokenStore, opts ...ClientOption) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, configError("store", "is required")
	}

	loginURL, err := url.Parse(cfg.LoginURL)
	if err != nil {
		return nil, configError("login_url", "is not a valid URL: "+err.Error())
	}

	c := &Client{
		cfg:           cfg,
		loginURL:      loginURL,
		store:         store,
		authenticator: NewCacheAuthenticator(cfg.KeyPrefix, cfg.SingleUse),
		logger:        observability.NewLogger(observability.InfoLevel, nil),
		recorder:      observability.NopRecorder{},
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("sso_client", cfg.Name)

	return c, nil
}

// Name returns the client name
func (c *Client) Name() string {
	return c.cfg.Name
}

// CookieName returns the name of the continuation cookie set on success
func (c *Client) CookieName() string {
	return c.cfg.CookieName
}

// Config returns a copy of the client configuration
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// RedirectNeeded reports whether the request carries no handshake evidence at all,
// meaning the browser should be sent to the login form first
func (c *Client) RedirectNeeded(r *http.Request) bool {
	return !hasParameter(r, c.cfg.TokenParameter)
}

// InitiateRedirect sends the browser to the login form
func (c *Client) InitiateRedirect(w http.ResponseWriter, r *http.Request) {
	c.recorder.RecordHandshake(r.Context(), c.cfg.Name, OutcomeInitiated, 0)
	http.Redirect(w, r, c.loginURL.String(), http.StatusFound)
}

// HandleCallback redeems the token carried by r.
//
// On success it appends the continuation cookie to w and returns the validated
// credentials. Every failure is returned as a *RedirectError pointing back at the
// login form; the caller only has to issue that redirect.
func (c *Client) HandleCallback(w http.ResponseWriter, r *http.Request) (*Credentials, error) {
	ctx, span := c.tracer.Start(r.Context(), "sso.HandleCallback",
		trace.WithAttributes(attribute.String("sso.client", c.cfg.Name)))
	defer span.End()
	start := time.Now()

	token := r.FormValue(c.cfg.TokenParameter)
	redirect := r.FormValue(c.cfg.RedirectParameter)
	if strings.TrimSpace(token) == "" || strings.TrimSpace(redirect) == "" {
		c.logger.Infof("Token cannot be blank -> return to the form with error")
		c.finish(ctx, span, OutcomeMissingParameter, start)
		return nil, &RedirectError{
			URL:    c.formURL(ReasonBlankToken),
			Reason: ReasonBlankToken,
			Cause:  ErrMissingParameter,
		}
	}

	creds := NewCredentials(token, c.cfg.Name)

	lookupCtx, cancel := context.WithTimeout(ctx, c.cfg.LookupTimeout)
	defer cancel()

	if err := c.authenticator.Validate(lookupCtx, c.store, creds); err != nil {
		outcome := classify(err)
		log := c.logger.WithError(err).WithField("credentials", creds.String())
		switch outcome {
		case OutcomeStoreUnavailable:
			log.Error("Credentials validation fails, token store unavailable -> return to the form with error")
		case OutcomeTokenNotFound:
			log.Info("Credentials validation fails -> return to the form with error")
		default:
			log.Warn("Credentials validation fails -> return to the form with error")
		}
		span.RecordError(err)
		c.finish(ctx, span, outcome, start)
		return nil, &RedirectError{
			URL:    c.formURL(ReasonValidationFailed),
			Reason: ReasonValidationFailed,
			Cause:  err,
		}
	}

	c.appendContinuationCookie(w, r, redirect)
	c.finish(ctx, span, OutcomeSuccess, start)

	username, _ := creds.Username()
	c.logger.WithField("username", username).Debug("Handshake validated")

	return creds, nil
}

func (c *Client) finish(ctx context.Context, span trace.Span, outcome string, start time.Time) {
	span.SetAttributes(attribute.String("sso.outcome", outcome))
	if outcome != OutcomeSuccess {
		span.SetStatus(codes.Error, outcome)
	}
	c.recorder.RecordHandshake(ctx, c.cfg.Name, outcome, time.Since(start))
}

// formURL returns the login form URL carrying reason in the error parameter
func (c *Client) formURL(reason string) string {
	u := *c.loginURL
	q := u.Query()
	q.Set(c.cfg.ErrorParameter, reason)
	u.RawQuery = q.Encode()
	return u.String()
}

// appendContinuationCookie adds CookieName=redirect to the Set-Cookie header without
// discarding what is already there. Existing values on the response take precedence
// over a Set-Cookie header on the inbound request.
func (c *Client) appendContinuationCookie(w http.ResponseWriter, r *http.Request, redirect string) {
	prior := strings.TrimSpace(strings.Join(w.Header().Values("Set-Cookie"), "; "))
	if prior == "" {
		prior = strings.TrimSpace(r.Header.Get("Set-Cookie"))
	}

	cookie := c.cfg.CookieName + "=" + CookieValue(redirect)
	if prior != "" {
		cookie = prior + "; " + cookie
	}
	w.Header().Set("Set-Cookie", cookie)
}

// CookieValue returns redirect unchanged when every byte is a valid cookie octet and
// percent-escapes the bytes that are not. The escaped form is an equivalent URL, so the
// value can be followed without decoding.
func CookieValue(redirect string) string {
	n := 0
	for i := 0; i < len(redirect); i++ {
		if !isCookieOctet(redirect[i]) {
			n++
		}
	}
	if n == 0 {
		return redirect
	}

	const hex = "0123456789ABCDEF"
	buf := make([]byte, 0, len(redirect)+2*n)
	for i := 0; i < len(redirect); i++ {
		b := redirect[i]
		if isCookieOctet(b) {
			buf = append(buf, b)
			continue
		}
		buf = append(buf, '%', hex[b>>4], hex[b&0x0f])
	}
	return string(buf)
}

// isCookieOctet reports whether b may appear in a cookie value (RFC 6265 cookie-octet)
func isCookieOctet(b byte) bool {
	return b > 0x20 && b < 0x7f && b != '"' && b != ',' && b != ';' && b != '\\'
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return OutcomeTokenNotFound
	case errors.Is(err, ErrTokenStoreUnavailable):
		return OutcomeStoreUnavailable
	default:
		return OutcomeError
	}
}

func hasParameter(r *http.Request, name string) bool {
	if err := r.ParseForm(); err != nil {
		return r.URL.Query().Has(name)
	}
	_, ok := r.Form[name]
	return ok
}

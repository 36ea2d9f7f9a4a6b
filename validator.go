package authx

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Identity is the result of validating a credential: the proven caller
// authorization, the user behind it, and the scopes the credential asserts.
// The asserted scopes are an upper bound; the live access graph can only
// narrow them further.
type Identity struct {
	AuthorizationID string
	UserID          string
	Scopes          []string
}

// Validator validates Authorization header credentials: bearer tokens
// against a set of trusted signing keys, and basic credentials by delegating
// to a token-issuing endpoint. Successful validations are cached briefly so
// a burst of requests with the same credential costs one verification.
type Validator struct {
	keys        []*rsa.PublicKey
	delegateURL string
	client      *http.Client
	cache       *gocache.Cache
	log         *zap.Logger
}

// ValidatorOption configures the Validator.
type ValidatorOption func(*Validator)

// WithKeys sets the trusted RSA public keys, in verification order. Multiple
// keys allow zero-downtime key rotation: tokens signed by the outgoing key
// stay valid while new tokens use the incoming one.
func WithKeys(keys ...*rsa.PublicKey) ValidatorOption {
	return func(v *Validator) {
		v.keys = keys
	}
}

// WithBasicDelegate sets the endpoint basic credentials are forwarded to for
// validation. Without it, basic credentials are rejected.
func WithBasicDelegate(url string) ValidatorOption {
	return func(v *Validator) {
		v.delegateURL = url
	}
}

// WithHTTPClient sets the HTTP client used for delegated validation.
func WithHTTPClient(client *http.Client) ValidatorOption {
	return func(v *Validator) {
		v.client = client
	}
}

// WithValidatorLogger sets the logger.
func WithValidatorLogger(log *zap.Logger) ValidatorOption {
	return func(v *Validator) {
		v.log = log
	}
}

// WithCacheTTL sets how long successful validations are cached. A cached
// credential is honored for the full TTL even if it expires or is revoked
// inside the window, so keep the TTL well below the shortest token lifetime.
func WithCacheTTL(ttl time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.cache = gocache.New(ttl, 2*ttl)
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		client: http.DefaultClient,
		cache:  gocache.New(30*time.Second, time.Minute),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// bearerClaims is the payload a bearer token must carry.
type bearerClaims struct {
	jwtv5.RegisteredClaims
	AuthorizationID string   `json:"aid"`
	Scopes          []string `json:"scopes"`
}

// ValidateHeader validates an Authorization header value. It returns the
// proven identity, nil for an empty header (anonymous), ErrNotAuthorized for
// credentials that fail validation, and a bare error for infrastructure
// failures that say nothing about the credential.
func (v *Validator) ValidateHeader(ctx context.Context, header string) (*Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}

	if cached, ok := v.cache.Get(header); ok {
		return cached.(*Identity), nil
	}

	scheme, credential, found := strings.Cut(header, " ")
	if !found {
		return nil, NewError(ErrNotAuthorized, "malformed authorization header")
	}
	credential = strings.TrimSpace(credential)

	var (
		id  *Identity
		err error
	)
	switch strings.ToUpper(scheme) {
	case "BEARER":
		id, err = v.ValidateBearer(ctx, credential)
	case "BASIC":
		id, err = v.ValidateBasic(ctx, credential)
	default:
		return nil, NewError(ErrNotAuthorized, fmt.Sprintf("unsupported authorization scheme %q", scheme))
	}
	if err != nil {
		return nil, err
	}

	v.cache.SetDefault(header, id)
	return id, nil
}

// ValidateBearer verifies a bearer token against the trusted keys in order.
// A token that verifies under any key but is expired or not yet valid fails
// immediately; no later key can make a stale token fresh. A token that
// verifies but carries a malformed payload is an infrastructure fault, not a
// credential failure.
func (v *Validator) ValidateBearer(ctx context.Context, token string) (*Identity, error) {
	for _, key := range v.keys {
		claims := &bearerClaims{}
		_, err := jwtv5.ParseWithClaims(token, claims,
			func(t *jwtv5.Token) (any, error) { return key, nil },
			jwtv5.WithValidMethods([]string{jwtv5.SigningMethodRS512.Alg()}),
		)
		if err != nil {
			if errors.Is(err, jwtv5.ErrTokenExpired) || errors.Is(err, jwtv5.ErrTokenNotValidYet) {
				return nil, NewError(ErrNotAuthorized, "token is expired or not yet valid")
			}
			v.log.Debug("bearer token failed under key, trying next", zap.Error(err))
			continue
		}

		if claims.AuthorizationID == "" {
			return nil, fmt.Errorf("verified token is missing an authorization id")
		}
		if claims.Subject == "" {
			return nil, fmt.Errorf("verified token is missing a subject")
		}
		if !AreValidScopeLiterals(claims.Scopes) {
			return nil, fmt.Errorf("verified token carries invalid scopes")
		}
		return &Identity{
			AuthorizationID: claims.AuthorizationID,
			UserID:          claims.Subject,
			Scopes:          claims.Scopes,
		}, nil
	}
	return nil, NewError(ErrNotAuthorized, "token did not verify under any trusted key")
}

// delegateViewer is the response shape of the delegated basic validation
// endpoint.
type delegateViewer struct {
	ID      string   `json:"id"`
	Enabled bool     `json:"enabled"`
	Scopes  []string `json:"scopes"`
	User    struct {
		ID string `json:"id"`
	} `json:"user"`
}

// ValidateBasic forwards basic credentials to the delegate endpoint, which
// owns secret comparison, and trusts its answer.
func (v *Validator) ValidateBasic(ctx context.Context, credential string) (*Identity, error) {
	if v.delegateURL == "" {
		return nil, NewError(ErrNotAuthorized, "basic credentials are not accepted")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.delegateURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+credential)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("delegated validation request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewError(ErrNotAuthorized, "basic credentials were rejected")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("delegated validation returned status %d", resp.StatusCode)
	}

	var viewer delegateViewer
	if err := json.NewDecoder(resp.Body).Decode(&viewer); err != nil {
		return nil, fmt.Errorf("delegated validation returned an unreadable body: %w", err)
	}
	if viewer.ID == "" || !viewer.Enabled {
		return nil, NewError(ErrNotAuthorized, "basic credentials do not map to an enabled authorization")
	}
	if viewer.User.ID == "" {
		return nil, fmt.Errorf("delegated validation returned no user id")
	}
	if !AreValidScopeLiterals(viewer.Scopes) {
		return nil, fmt.Errorf("delegated validation returned invalid scopes")
	}
	return &Identity{
		AuthorizationID: viewer.ID,
		UserID:          viewer.User.ID,
		Scopes:          viewer.Scopes,
	}, nil
}

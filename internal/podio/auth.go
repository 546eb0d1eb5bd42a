package podio

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	defaultRequestTimeout = 60 * time.Second
	defaultAuthAttempts   = 5
	defaultAuthDelay      = time.Second
)

// AuthOptions are the Podio client keys plus either user credentials
// (password grant) or an app id and token (app grant).
type AuthOptions struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	AppID        string
	AppToken     string
	Username     string
	Password     string
	Timeout      time.Duration

	// Attempts bounds the token requests made before giving up.
	Attempts   int
	RetryDelay time.Duration
}

func (o AuthOptions) usePasswordGrant() bool {
	return o.Username != ""
}

func (o *AuthOptions) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = defaultRequestTimeout
	}
	if o.Attempts <= 0 {
		o.Attempts = defaultAuthAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultAuthDelay
	}
}

// Authenticate obtains an access token and returns an HTTP client that sends it
// and refreshes it when it expires. Throttled, failing or unreachable token
// endpoints are retried; the final error is an *AuthError.
func Authenticate(ctx context.Context, opts AuthOptions) (*http.Client, error) {
	opts.setDefaults()
	conf := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	// token requests go through a client with the configured timeout
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: opts.Timeout})
	log := zap.S().Named("podio")

	var (
		token    *oauth2.Token
		attempts int
	)
	backoff := retry.WithMaxRetries(uint64(opts.Attempts-1), retry.NewConstant(opts.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		var err error
		token, err = fetchToken(ctx, conf, opts)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			log.Warnw("retrying token request", "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, &AuthError{Attempts: attempts, Err: errors.Wrap(err, "failed to authenticate with podio")}
	}

	client := conf.Client(ctx, token)
	client.Timeout = opts.Timeout
	return client, nil
}

func fetchToken(ctx context.Context, conf *oauth2.Config, opts AuthOptions) (*oauth2.Token, error) {
	if opts.usePasswordGrant() {
		zap.S().Named("podio").Debugw("authenticating with password grant", "username", opts.Username)
		return conf.PasswordCredentialsToken(ctx, opts.Username, opts.Password)
	}
	zap.S().Named("podio").Debugw("authenticating with app grant", "app_id", opts.AppID)
	return conf.Exchange(ctx, "",
		oauth2.SetAuthURLParam("grant_type", "app"),
		oauth2.SetAuthURLParam("app_id", opts.AppID),
		oauth2.SetAuthURLParam("app_token", opts.AppToken),
	)
}

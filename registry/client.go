package registry

import (
	"fmt"
	"log/slog"
	"net/http"

	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// Client pushes and pulls archives to and from remote repositories.
type Client struct {
	plainHTTP    bool
	userAgent    string
	anonymous    bool
	dockerConfig bool
	creds        map[string]auth.Credential
	store        credentials.Store
	authClient   *auth.Client
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCredentialStore looks up credentials for hosts without explicit
// credentials in store.
func WithCredentialStore(store credentials.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithCredentials sets a username and password for host. It may be given
// once per host; a later call for the same host replaces the earlier one.
func WithCredentials(host, username, password string) Option {
	return func(c *Client) {
		c.setCredential(host, auth.Credential{Username: username, Password: password})
	}
}

// WithToken sets a bearer token for host.
func WithToken(host, token string) Option {
	return func(c *Client) {
		c.setCredential(host, auth.Credential{AccessToken: token})
	}
}

// WithDockerConfig uses ~/.docker/config.json and its credential helpers
// as the credential store. If the config cannot be loaded the client
// carries on without a store.
func WithDockerConfig() Option {
	return func(c *Client) {
		c.dockerConfig = true
	}
}

// WithPlainHTTP enables plain HTTP (no TLS) for registries.
// This is useful for local development registries.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) {
		c.plainHTTP = enabled
	}
}

// WithAnonymous disables all authentication, including credential store lookups.
func WithAnonymous() Option {
	return func(c *Client) {
		c.anonymous = true
	}
}

// WithUserAgent sets the User-Agent header sent to registries.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger for registry operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{userAgent: "peac/1.0"}
	for _, opt := range opts {
		opt(c)
	}
	if c.dockerConfig && c.store == nil && !c.anonymous {
		store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
		if err != nil {
			c.log().Debug("docker credentials unavailable", "error", err)
		} else {
			c.store = store
		}
	}
	c.authClient = &auth.Client{
		Client:     retry.DefaultClient,
		Cache:      auth.NewCache(),
		Credential: c.credential,
		Header: http.Header{
			"User-Agent": []string{c.userAgent},
		},
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Repository returns the remote repository named by ref and the tag or
// digest it carries, which may be empty.
func (c *Client) Repository(ref string) (*remote.Repository, string, error) {
	parsed, err := registry.ParseReference(ref)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	repo, err := remote.NewRepository(parsed.Registry + "/" + parsed.Repository)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	repo.PlainHTTP = c.plainHTTP
	repo.Client = c.authClient
	return repo, parsed.Reference, nil
}

// Host returns the registry host[:port] named by ref.
func Host(ref string) (string, error) {
	parsed, err := registry.ParseReference(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return parsed.Registry, nil
}

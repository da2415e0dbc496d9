package registry

import (
	"context"
	"strings"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// dockerHub is the key under which every Docker Hub alias is stored.
const dockerHub = "docker.io"

// credential resolves the credential the auth client presents to hostport.
// Explicit per-host credentials win over the credential store; anonymous
// clients never send any.
func (c *Client) credential(ctx context.Context, hostport string) (auth.Credential, error) {
	if c.anonymous {
		return auth.EmptyCredential, nil
	}
	if cred, ok := c.creds[hostKey(hostport)]; ok {
		return cred, nil
	}
	if c.store == nil {
		return auth.EmptyCredential, nil
	}
	// credentials.Credential maps registry-1.docker.io to the legacy
	// index.docker.io address docker login records.
	cred, err := credentials.Credential(c.store)(ctx, hostport)
	if err != nil {
		c.log().Debug("credential lookup failed", "host", hostport, "error", err)
		return auth.EmptyCredential, err
	}
	return cred, nil
}

func (c *Client) setCredential(host string, cred auth.Credential) {
	if c.creds == nil {
		c.creds = make(map[string]auth.Credential)
	}
	c.creds[hostKey(host)] = cred
}

// hostKey reduces a registry address (a bare host[:port] or a URL such as
// https://host/v2/) to the key used for per-host credentials. Docker Hub
// aliases share one key.
func hostKey(addr string) string {
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimPrefix(addr, "http://")
	addr, _, _ = strings.Cut(addr, "/")
	addr = strings.ToLower(addr)
	switch addr {
	case "docker.io", "index.docker.io", "registry-1.docker.io":
		return dockerHub
	}
	return addr
}

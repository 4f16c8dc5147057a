// config/credentials.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var (
	// ErrMissingCredential means the credential file does not exist.
	ErrMissingCredential = errors.New("access credential file missing")
	// ErrMalformedCredential means the file exists but does not yield a
	// customer identity and a feed repository locator.
	ErrMalformedCredential = errors.New("access credential file malformed")
)

// Credential is the customer identity and target repository used to
// authenticate the mirror pull.
type Credential struct {
	CustomerID string
	Repository *url.URL
}

// ResolveCredential loads the credential file, a KEY=VALUE file with
// CUSTOMER_ID and FEED_REPO entries. It has no side effects and fails fast so
// a sync never starts without access.
func ResolveCredential(path string) (*Credential, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredential, path)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCredential, path, err)
	}

	id := strings.TrimSpace(env["CUSTOMER_ID"])
	repo := strings.TrimSpace(env["FEED_REPO"])
	if id == "" || repo == "" {
		return nil, fmt.Errorf("%w: %s: CUSTOMER_ID and FEED_REPO are required", ErrMalformedCredential, path)
	}

	u, err := url.Parse(repo)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %s: FEED_REPO must be an http(s) URL", ErrMalformedCredential, path)
	}

	return &Credential{CustomerID: id, Repository: u}, nil
}

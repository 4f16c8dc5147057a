// mirror/transport.go
package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gewnthar/advsync/config"
	"github.com/gewnthar/advsync/models"
)

// ErrTransportFailure covers every way the mirror pull can fail:
// authentication, connectivity, bad status, digest mismatch. A single failed
// attempt is fatal to the run; retries are a deliberate non-feature.
var ErrTransportFailure = errors.New("mirror transport failure")

const customerHeader = "X-Customer-ID"

// Transport reconciles the local staging tree against the remote corpus so
// that, deletion policy permitting, its content set-equals the remote — with
// the exception of the protected local subtrees (the store file, the private
// area, the sync bookkeeping files), which are never deleted even when absent
// remotely.
type Transport struct {
	client     *http.Client
	repo       *url.URL
	customerID string
	staging    string
	deletePol  bool
	protected  []string // staging-relative, slash-separated prefixes
}

// NewTransport builds the mirror client from the run configuration and the
// resolved access credential. The optional proxy is the indirect network path
// for environments without direct access; the outgoing port pins the local
// side of the connection for strict egress filters.
func NewTransport(cfg *config.Config, cred *config.Credential) (*Transport, error) {
	if cred.Repository.Scheme != "https" && !isLoopbackHost(cred.Repository.Hostname()) {
		return nil, fmt.Errorf("%w: refusing plain http to non-local repository %s", ErrTransportFailure, cred.Repository.Host)
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	if cfg.Mirror.OutgoingPort > 0 {
		dialer.LocalAddr = &net.TCPAddr{Port: cfg.Mirror.OutgoingPort}
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,
		Proxy:       http.ProxyFromEnvironment,
	}
	if cfg.Mirror.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Mirror.Proxy)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid proxy URL %q: %v", ErrTransportFailure, cfg.Mirror.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	t := &Transport{
		client:     &http.Client{Transport: transport, Timeout: 5 * time.Minute},
		repo:       cred.Repository,
		customerID: cred.CustomerID,
		staging:    cfg.Paths.Staging,
		deletePol:  cfg.Mirror.Delete,
	}
	t.protected = protectedPrefixes(cfg)
	return t, nil
}

// protectedPrefixes lists the staging-relative paths the deletion
// reconciliation must never touch.
func protectedPrefixes(cfg *config.Config) []string {
	var prefixes []string
	add := func(abs string) {
		rel, err := filepath.Rel(cfg.Paths.Staging, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return // outside staging, nothing to protect
		}
		prefixes = append(prefixes, filepath.ToSlash(rel))
	}
	add(cfg.Paths.Store)
	add(cfg.Paths.Store + "-wal")
	add(cfg.Paths.Store + "-shm")
	add(cfg.Paths.Marker)
	add(cfg.LockPath())
	add(cfg.PrivateDir())
	return prefixes
}

// Sync performs one full mirror pull: fetch the manifest, bring every listed
// file up to its published digest, then prune local files the manifest no
// longer names. Any failure aborts before the store is touched by later
// stages; completed file swaps are digest-consistent and safe to keep.
func (t *Transport) Sync() ([]models.ManifestEntry, error) {
	entries, err := t.fetchManifest()
	if err != nil {
		return nil, err
	}
	log.Printf("Mirror: manifest lists %d file(s)", len(entries))

	downloaded := 0
	for _, e := range entries {
		changed, err := t.ensureFile(e)
		if err != nil {
			return nil, err
		}
		if changed {
			downloaded++
		}
	}
	log.Printf("Mirror: %d file(s) downloaded, %d unchanged", downloaded, len(entries)-downloaded)

	if t.deletePol {
		if err := t.prune(entries); err != nil {
			return nil, err
		}
	} else {
		log.Printf("Mirror: deletion reconciliation disabled by configuration")
	}
	return entries, nil
}

// fetchManifest pulls and parses the corpus index.
func (t *Transport) fetchManifest() ([]models.ManifestEntry, error) {
	body, err := t.get(ManifestName)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	entries, err := ParseManifest(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	return entries, nil
}

// ensureFile brings one staged file up to the manifest's digest. Unchanged
// files are left untouched so their timestamps keep encoding the last real
// content change.
func (t *Transport) ensureFile(e models.ManifestEntry) (bool, error) {
	local := filepath.Join(t.staging, filepath.FromSlash(e.File))

	if digest, err := fileDigest(local); err == nil && digest == strings.ToLower(e.SHA256) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return false, fmt.Errorf("%w: failed to create directory for %s: %v", ErrTransportFailure, e.File, err)
	}

	body, err := t.get(e.File)
	if err != nil {
		return false, err
	}
	defer body.Close()

	part := local + ".part"
	out, err := os.Create(part)
	if err != nil {
		return false, fmt.Errorf("%w: failed to create %s: %v", ErrTransportFailure, part, err)
	}

	hasher := sha256.New()
	_, copyErr := io.Copy(out, io.TeeReader(body, hasher))
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(part)
		return false, fmt.Errorf("%w: failed to download %s: copy=%v close=%v", ErrTransportFailure, e.File, copyErr, closeErr)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if got != strings.ToLower(e.SHA256) {
		os.Remove(part)
		return false, fmt.Errorf("%w: digest mismatch for %s: manifest %s, downloaded %s", ErrTransportFailure, e.File, e.SHA256, got)
	}

	if err := os.Rename(part, local); err != nil {
		os.Remove(part)
		return false, fmt.Errorf("%w: failed to move %s into place: %v", ErrTransportFailure, e.File, err)
	}
	if err := os.Chtimes(local, e.Modified, e.Modified); err != nil {
		log.Printf("WARN Mirror: failed to set modification time on %s: %v", local, err)
	}

	log.Printf("Mirror: downloaded %s (%d bytes)", e.File, e.Size)
	return true, nil
}

// prune removes staged files the manifest no longer names, skipping the
// protected subtrees.
func (t *Transport) prune(entries []models.ManifestEntry) error {
	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		keep[path.Clean(e.File)] = true
	}

	return filepath.WalkDir(t.staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: failed to walk staging tree: %v", ErrTransportFailure, err)
		}
		rel, relErr := filepath.Rel(t.staging, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if t.isProtected(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || keep[rel] {
			return nil
		}

		log.Printf("Mirror: removing %s, no longer present upstream", rel)
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("%w: failed to remove %s: %v", ErrTransportFailure, rel, err)
		}
		return nil
	})
}

func (t *Transport) isProtected(rel string) bool {
	for _, prefix := range t.protected {
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			return true
		}
	}
	return false
}

// get issues an authenticated GET for a repository-relative file.
func (t *Transport) get(name string) (io.ReadCloser, error) {
	u := t.repo.JoinPath(name)
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	req.Header.Set(customerHeader, t.customerID)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrTransportFailure, u, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: repository rejected customer identity (status %d)", ErrTransportFailure, resp.StatusCode)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrTransportFailure, u, resp.StatusCode)
	}
}

// fileDigest hashes a local file; any error means "treat as changed".
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

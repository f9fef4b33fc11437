package ygggo_formsql

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Provider opens connectors for one family of destination URLs.
type Provider interface {
	// Name is the db.system value reported in logs and spans.
	Name() string
	Open(ctx context.Context, rawURL string, opts OpenOptions) (Connector, error)
}

// Connector is an opened destination able to hand out connections.
type Connector interface {
	Acquire(ctx context.Context) (Session, error)
	System() string
	DB() *sql.DB
	Ping(ctx context.Context) error
	Stats() sql.DBStats
	Close() error
}

// Session is one connection, held for the lifetime of a single submission.
type Session interface {
	Prepare(ctx context.Context, query string) (PreparedStatement, error)
	Close() error
}

// PreparedStatement is a statement prepared on a Session.
type PreparedStatement interface {
	Statement
	Close() error
}

// OpenOptions carries the pool and driver settings applied when a destination is opened.
type OpenOptions struct {
	Pool      PoolConfig
	SQLite    SQLiteConfig
	Telemetry bool
}

// Registry maps destination URL prefixes to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// NewDefaultRegistry returns a registry with the MySQL, PostgreSQL and SQLite providers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("mysql://", MySQLProvider{})
	r.Register("mariadb://", MySQLProvider{})
	r.Register("postgres://", PostgresProvider{})
	r.Register("postgresql://", PostgresProvider{})
	r.Register("sqlite://", SQLiteProvider{})
	r.Register("file:", SQLiteProvider{})
	return r
}

// Register binds a URL prefix (for example "mysql://") to a provider.
// Prefixes are compared case-insensitively.
func (r *Registry) Register(prefix string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(prefix)] = p
}

// Resolve returns the provider registered under the longest prefix of rawURL.
func (r *Registry) Resolve(rawURL string) (Provider, error) {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best    Provider
		bestLen int
	)
	for prefix, p := range r.providers {
		if len(prefix) > bestLen && strings.HasPrefix(lower, prefix) {
			best, bestLen = p, len(prefix)
		}
	}
	if best == nil {
		return nil, &UnsupportedDestinationError{URL: rawURL}
	}
	return best, nil
}

// Prefixes lists the registered prefixes in sorted order.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Destinations opens connectors on first use and keeps one per URL.
// The *sql.DB pools live here, in the connector layer; sessions and statements
// never outlive a submission.
type Destinations struct {
	registry *Registry
	opts     OpenOptions
	logger   *slog.Logger

	mu   sync.Mutex
	open map[string]Connector
}

// NewDestinations creates an empty destination set backed by registry.
func NewDestinations(registry *Registry, opts OpenOptions, logger *slog.Logger) *Destinations {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Destinations{registry: registry, opts: opts, logger: logger, open: make(map[string]Connector)}
}

// Registry returns the provider registry.
func (d *Destinations) Registry() *Registry { return d.registry }

// Connector returns the connector for rawURL, opening it if needed.
func (d *Destinations) Connector(ctx context.Context, rawURL string) (Connector, error) {
	d.mu.Lock()
	if c, ok := d.open[rawURL]; ok {
		d.mu.Unlock()
		return c, nil
	}
	d.mu.Unlock()

	p, err := d.registry.Resolve(rawURL)
	if err != nil {
		return nil, err
	}
	// open outside the lock so one slow destination does not block the others
	start := time.Now()
	c, err := p.Open(ctx, rawURL, d.opts)
	d.logConnectorEvent(ctx, "open", p.Name(), rawURL, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.open[rawURL]; ok {
		_ = c.Close()
		return existing, nil
	}
	d.open[rawURL] = c
	return c, nil
}

// Open eagerly opens every URL, returning the combined failures.
func (d *Destinations) Open(ctx context.Context, urls ...string) error {
	var result *multierror.Error
	for _, u := range urls {
		if _, err := d.Connector(ctx, u); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

type openConnector struct {
	url string
	c   Connector
}

func (d *Destinations) snapshot() []openConnector {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]openConnector, 0, len(d.open))
	for u, c := range d.open {
		out = append(out, openConnector{url: u, c: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].url < out[j].url })
	return out
}

// Close closes every opened connector.
func (d *Destinations) Close() error {
	d.mu.Lock()
	open := d.open
	d.open = make(map[string]Connector)
	d.mu.Unlock()

	var result *multierror.Error
	for u, c := range open {
		start := time.Now()
		err := c.Close()
		d.logConnectorEvent(context.Background(), "close", c.System(), u, time.Since(start), err)
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// redactURL hides the password of a destination URL for logs and error text.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if u.User == nil {
			return rawURL
		}
		return u.Redacted()
	}
	// unparsable: blank out everything between "://" and the last '@' of the authority
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return rawURL
	}
	rest := rawURL[i+3:]
	authority := rest
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		authority = rest[:j]
	}
	at := strings.LastIndexByte(authority, '@')
	if at < 0 {
		return rawURL
	}
	return rawURL[:i+3] + "xxxxx" + rest[at:]
}

// Package lookup resolves hosted zones for the stack's apex domain.
//
// Results are recorded in a context file next to the configuration, so a
// stack that has been synthesized once can be synthesized again offline and
// always resolves to the same zone.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/go-logr/logr"
)

// DefaultContextFile is the file lookups are cached in.
const DefaultContextFile = "webapp.context.json"

// ErrZoneNotFound is returned when no public hosted zone matches the domain.
var ErrZoneNotFound = errors.New("hosted zone not found")

// Route53API is the subset of the Route 53 client used for lookups.
type Route53API interface {
	ListHostedZonesByName(ctx context.Context, params *route53.ListHostedZonesByNameInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error)
}

// HostedZone is a resolved public hosted zone.
type HostedZone struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Provider looks up hosted zones through a context cache.
type Provider struct {
	client      Route53API
	contextFile string
	log         logr.Logger

	mu    sync.Mutex
	cache map[string]HostedZone
}

// Option configures a Provider.
type Option func(*Provider)

// WithContextFile sets the cache file. An empty path disables caching.
func WithContextFile(path string) Option {
	return func(p *Provider) { p.contextFile = path }
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// NewProvider creates a Provider. client may be nil, in which case only cached
// lookups succeed.
func NewProvider(client Route53API, opts ...Option) *Provider {
	p := &Provider{
		client:      client,
		contextFile: DefaultContextFile,
		log:         logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ContextKey returns the cache key for a domain.
func ContextKey(domain string) string {
	return "hosted-zone:domainName=" + strings.TrimSuffix(domain, ".")
}

// HostedZone returns the public hosted zone named exactly domain.
func (p *Provider) HostedZone(ctx context.Context, domain string) (HostedZone, error) {
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" {
		return HostedZone{}, errors.New("empty domain name")
	}
	key := ContextKey(domain)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(); err != nil {
		return HostedZone{}, err
	}
	if zone, ok := p.cache[key]; ok {
		p.log.V(1).Info("hosted zone from context", "domain", domain, "zone", zone.ID)
		return zone, nil
	}
	if p.client == nil {
		return HostedZone{}, fmt.Errorf("%w: %s (not in %s and no AWS client)", ErrZoneNotFound, domain, p.contextFile)
	}

	zone, err := p.query(ctx, domain)
	if err != nil {
		return HostedZone{}, err
	}
	p.log.Info("resolved hosted zone", "domain", domain, "zone", zone.ID)

	p.cache[key] = zone
	if err := p.save(); err != nil {
		return HostedZone{}, err
	}
	return zone, nil
}

func (p *Provider) query(ctx context.Context, domain string) (HostedZone, error) {
	want := domain + "."
	input := &route53.ListHostedZonesByNameInput{DNSName: aws.String(want)}
	for {
		out, err := p.client.ListHostedZonesByName(ctx, input)
		if err != nil {
			return HostedZone{}, fmt.Errorf("listing hosted zones for %s: %w", domain, err)
		}
		for _, z := range out.HostedZones {
			name := aws.ToString(z.Name)
			if name != want {
				// Listing starts at DNSName, so exact matches come first.
				return HostedZone{}, fmt.Errorf("%w: %s", ErrZoneNotFound, domain)
			}
			if z.Config != nil && z.Config.PrivateZone {
				continue
			}
			return HostedZone{
				ID:   strings.TrimPrefix(aws.ToString(z.Id), "/hostedzone/"),
				Name: domain,
			}, nil
		}
		if !out.IsTruncated {
			return HostedZone{}, fmt.Errorf("%w: %s", ErrZoneNotFound, domain)
		}
		input.DNSName = out.NextDNSName
		input.HostedZoneId = out.NextHostedZoneId
	}
}

func (p *Provider) load() error {
	if p.cache != nil {
		return nil
	}
	p.cache = make(map[string]HostedZone)
	if p.contextFile == "" {
		return nil
	}
	data, err := os.ReadFile(p.contextFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", p.contextFile, err)
	}
	if err := json.Unmarshal(data, &p.cache); err != nil {
		// Stay unloaded so a later lookup fails too and never overwrites the file.
		p.cache = nil
		return fmt.Errorf("parsing %s: %w", p.contextFile, err)
	}
	if p.cache == nil {
		p.cache = make(map[string]HostedZone)
	}
	return nil
}

func (p *Provider) save() error {
	if p.contextFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(p.cache, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.contextFile, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p.contextFile, err)
	}
	return nil
}

// Keys returns the cached context keys, sorted.
func (p *Provider) Keys() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.load(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(p.cache))
	for k := range p.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

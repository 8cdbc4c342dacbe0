package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/H1Skaak/g3/internal/netconf"
)

var (
	// ErrNoRecords is returned when the name has no A or AAAA records.
	ErrNoRecords = errors.New("no records found")
	// ErrEmptyHostname is returned for a blank hostname.
	ErrEmptyHostname = errors.New("empty hostname")
	// ErrServerFailure is returned when a server answers with an error code.
	ErrServerFailure = errors.New("server failure")
)

// Exchanger sends one DNS message to a server. *dns.Client implements it.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (r *dns.Msg, rtt time.Duration, err error)
}

// Client resolves names against the servers of one Config.
type Client struct {
	exchanger Exchanger
	cfg       Config
	next      atomic.Uint32
}

// Opt configures a Client.
type Opt func(*Client)

// WithExchanger replaces the transport, mostly for tests.
func WithExchanger(e Exchanger) Opt {
	return func(r *Client) {
		r.exchanger = e
	}
}

// New returns a Client for cfg.
func New(cfg Config, opts ...Opt) *Client {
	r := &Client{
		exchanger: &dns.Client{Timeout: cfg.Timeout},
		cfg:       cfg,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Name is the name of the resolver configuration.
func (r *Client) Name() string { return r.cfg.Name }

// LookupHost resolves hostname to its IPv4 and IPv6 addresses. An IP literal
// is returned as is.
func (r *Client) LookupHost(ctx context.Context, hostname string) ([]netip.Addr, error) {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		return nil, ErrEmptyHostname
	}
	if addr, err := netip.ParseAddr(hostname); err == nil {
		return []netip.Addr{addr.Unmap()}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.lookupBoth(ctx, hostname)
}

// LookupEndpoint resolves the host of ep and pairs every address with its port.
func (r *Client) LookupEndpoint(ctx context.Context, ep netconf.Endpoint) ([]netip.AddrPort, error) {
	if ep.Host.IsIP() {
		return []netip.AddrPort{netip.AddrPortFrom(ep.Host.Addr, ep.Port)}, nil
	}
	addrs, err := r.LookupHost(ctx, ep.Host.Domain)
	if err != nil {
		return nil, err
	}
	out := make([]netip.AddrPort, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, netip.AddrPortFrom(a, ep.Port))
	}
	return out, nil
}

// lookupBoth sends A and AAAA queries concurrently. It fails only when both do.
func (r *Client) lookupBoth(ctx context.Context, host string) ([]netip.Addr, error) {
	var (
		grp  errgroup.Group
		mu   sync.Mutex
		v4   []netip.Addr
		v6   []netip.Addr
		errs error
	)

	query := func(qtype uint16, dst *[]netip.Addr) func() error {
		return func() error {
			addrs, err := r.lookup(ctx, host, qtype)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", dns.TypeToString[qtype], err))
				return nil
			}
			*dst = addrs
			return nil
		}
	}
	grp.Go(query(dns.TypeA, &v4))
	grp.Go(query(dns.TypeAAAA, &v6))
	_ = grp.Wait()

	if len(v4)+len(v6) == 0 {
		if errs == nil {
			errs = ErrNoRecords
		}
		return nil, fmt.Errorf("lookup %q via %s: %w", host, r.cfg.Name, errs)
	}
	return append(v4, v6...), nil
}

// lookup runs one query type with up to Retries extra attempts. A negative
// answer is final and is not retried.
func (r *Client) lookup(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	var lastErr error
	for attempt := uint(0); attempt <= r.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, multierr.Append(lastErr, err)
		}

		// ExchangeContext mutates the message, so build one per attempt.
		req := new(dns.Msg)
		req.SetQuestion(dns.Fqdn(host), qtype)

		resp, _, err := r.exchanger.ExchangeContext(ctx, req, r.server())
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp == nil:
			lastErr = errors.New("empty message")
			continue
		case resp.Rcode == dns.RcodeNameError:
			return nil, ErrNoRecords
		case resp.Rcode != dns.RcodeSuccess:
			lastErr = fmt.Errorf("%w: %s", ErrServerFailure, dns.RcodeToString[resp.Rcode])
			continue
		}
		return answers(resp)
	}
	return nil, lastErr
}

func answers(resp *dns.Msg) ([]netip.Addr, error) {
	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		var ip []byte
		switch rec := rr.(type) {
		case *dns.A:
			ip = rec.A
		case *dns.AAAA:
			ip = rec.AAAA
		default:
			continue
		}
		if a, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, a.Unmap())
		}
	}
	if len(addrs) == 0 {
		return nil, ErrNoRecords
	}
	return addrs, nil
}

// server picks the servers in turn so retries move to the next one.
func (r *Client) server() string {
	n := r.next.Inc() - 1
	return r.cfg.Servers[int(n%uint32(len(r.cfg.Servers)))].String()
}

package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/ruteri/carol-node/interfaces"
)

// Kind is the class of a resolved host.
type Kind int

const (
	KindUnknown Kind = iota
	KindAPI
	KindMachine
)

func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindMachine:
		return "machine"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of classifying a host. Machine is set only for
// KindMachine.
type Resolution struct {
	Kind    Kind
	Machine interfaces.MachineID
}

type Config struct {
	// BaseDomain is the domain machines are served under. Empty disables
	// machine addressing: every host is API traffic.
	BaseDomain string
	// IgnoreHosts are always treated as API traffic.
	IgnoreHosts []string
	// DNSServer is the host:port queried for CNAME records.
	DNSServer string
	// Timeout bounds a single DNS exchange.
	Timeout time.Duration
}

type Resolver struct {
	baseDomain  string
	passthrough map[string]struct{}
	server      string
	client      *dns.Client
	log         *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Resolver, error) {
	r := &Resolver{
		passthrough: make(map[string]struct{}, len(cfg.IgnoreHosts)),
		server:      cfg.DNSServer,
		client:      &dns.Client{Net: "udp", Timeout: cfg.Timeout},
		log:         log,
	}

	if cfg.BaseDomain != "" {
		if _, ok := dns.IsDomainName(cfg.BaseDomain); !ok {
			return nil, fmt.Errorf("invalid base domain %q", cfg.BaseDomain)
		}
		r.baseDomain = dns.CanonicalName(cfg.BaseDomain)
		if r.server == "" {
			return nil, fmt.Errorf("a dns server is required with base domain %q", cfg.BaseDomain)
		}
	}
	for _, host := range cfg.IgnoreHosts {
		r.passthrough[dns.CanonicalName(host)] = struct{}{}
	}
	return r, nil
}

// BaseDomain returns the configured base domain without the trailing dot,
// or "" when machine addressing is disabled.
func (r *Resolver) BaseDomain() string {
	return strings.TrimSuffix(r.baseDomain, ".")
}

// MachineHost returns the hostname serving the machine, or "" when machine
// addressing is disabled.
func (r *Resolver) MachineHost(id interfaces.MachineID) string {
	if r.baseDomain == "" {
		return ""
	}
	return LabelForMachine(id) + "." + r.BaseDomain()
}

// Resolve classifies host, the value of a request's Host header. Only a
// failed DNS exchange is reported as an error.
func (r *Resolver) Resolve(ctx context.Context, host string) (Resolution, error) {
	if r.baseDomain == "" {
		return Resolution{Kind: KindAPI}, nil
	}

	if _, err := netip.ParseAddrPort(host); err == nil {
		return Resolution{Kind: KindAPI}, nil
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return Resolution{Kind: KindAPI}, nil
	}
	if bracketed, ok := strings.CutPrefix(host, "["); ok {
		// IPv6 literal without a port, as Host headers carry it.
		if _, err := netip.ParseAddr(strings.TrimSuffix(bracketed, "]")); err == nil {
			return Resolution{Kind: KindAPI}, nil
		}
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if _, ok := dns.IsDomainName(host); !ok || host == "" {
		return Resolution{Kind: KindUnknown}, nil
	}

	name := dns.CanonicalName(host)
	if isLocalhost(name) {
		return Resolution{Kind: KindAPI}, nil
	}
	if _, ok := r.passthrough[name]; ok {
		return Resolution{Kind: KindAPI}, nil
	}
	if name == r.baseDomain {
		return Resolution{Kind: KindAPI}, nil
	}
	if id, ok := r.matchMachine(name); ok {
		return Resolution{Kind: KindMachine, Machine: id}, nil
	}

	return r.lookupCNAME(ctx, name)
}

func (r *Resolver) lookupCNAME(ctx context.Context, name string) (Resolution, error) {
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeCNAME)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return Resolution{}, fmt.Errorf("looking up CNAME for %s: %w", name, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return Resolution{Kind: KindUnknown}, nil
	default:
		return Resolution{}, fmt.Errorf("looking up CNAME for %s: %s", name, dns.RcodeToString[in.Rcode])
	}

	for _, answer := range in.Answer {
		cname, ok := answer.(*dns.CNAME)
		if !ok {
			continue
		}
		if id, ok := r.matchMachine(dns.CanonicalName(cname.Target)); ok {
			r.log.Debug("resolved machine through CNAME", "host", name, "target", cname.Target)
			return Resolution{Kind: KindMachine, Machine: id}, nil
		}
	}
	return Resolution{Kind: KindUnknown}, nil
}

// matchMachine accepts names of the form <machine label>.<base domain>.
func (r *Resolver) matchMachine(name string) (interfaces.MachineID, bool) {
	first, rest, ok := strings.Cut(name, ".")
	if !ok || rest != r.baseDomain {
		return interfaces.MachineID{}, false
	}
	id, err := MachineFromLabel(first)
	if err != nil {
		return interfaces.MachineID{}, false
	}
	return id, true
}

func isLocalhost(name string) bool {
	return name == "localhost." || strings.HasSuffix(name, ".localhost.")
}

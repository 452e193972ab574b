package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	resolvConfPath        = "/etc/resolv.conf"
	defaultResolverAddr   = "127.0.0.1:53"
	defaultPTRLookupLimit = 2 * time.Second
)

// ReverseResolver resolves PTR records for scanned hosts whose hostname
// nmap could not determine. Lookups are best-effort: any failure leaves
// the hostname empty.
type ReverseResolver struct {
	server string
	client *dns.Client
}

// NewReverseResolver creates a resolver against the given DNS server
// ("host:port"). An empty server selects the system resolver from
// /etc/resolv.conf, falling back to localhost.
func NewReverseResolver(server string) *ReverseResolver {
	if server == "" {
		server = systemResolver()
	}
	return &ReverseResolver{
		server: server,
		client: &dns.Client{Timeout: defaultPTRLookupLimit},
	}
}

func systemResolver() string {
	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(conf.Servers) == 0 {
		return defaultResolverAddr
	}
	return fmt.Sprintf("%s:%s", conf.Servers[0], conf.Port)
}

// LookupAddr returns the PTR hostname for an IP, or "" when the address
// has no reverse record.
func (r *ReverseResolver) LookupAddr(ctx context.Context, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", nil
	}

	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", nil
}

// Package deliverability checks whether an email address can plausibly
// receive mail: syntax first, then an MX lookup on the domain.
package deliverability

import (
	"context"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const defaultLookupTimeout = 5 * time.Second

// Checker verifies email deliverability via DNS.
type Checker struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithResolver replaces the DNS resolver, mainly for tests.
func WithResolver(r *net.Resolver) Option {
	return func(c *Checker) { c.resolver = r }
}

// WithTimeout bounds each DNS lookup.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChecker creates a Checker using the system resolver.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		resolver: net.DefaultResolver,
		timeout:  defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the outcome of one deliverability check.
type Result struct {
	Email       string `json:"email"`
	SyntaxValid bool   `json:"syntax_valid"`
	HasMX       bool   `json:"has_mx"`
	Deliverable bool   `json:"deliverable"`
	Detail      string `json:"detail,omitempty"`
}

// Check validates the address syntax and looks up MX records for its domain.
// A domain with no MX but a resolvable A record still counts as deliverable,
// since plain A fallback delivery is legal.
func (c *Checker) Check(ctx context.Context, email string) (Result, error) {
	res := Result{Email: email}

	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		res.Detail = "invalid syntax"
		return res, nil
	}
	res.SyntaxValid = true

	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mx, err := c.resolver.LookupMX(ctx, domain)
	if err == nil && len(mx) > 0 {
		res.HasMX = true
		res.Deliverable = true
		return res, nil
	}

	var dnsErr *net.DNSError
	if err != nil && !eris.As(err, &dnsErr) {
		return res, eris.Wrap(err, "deliverability: mx lookup")
	}
	if dnsErr != nil && dnsErr.IsTimeout {
		return res, eris.Wrap(err, "deliverability: mx lookup timed out")
	}

	// No MX record; try A/AAAA fallback.
	addrs, err := c.resolver.LookupHost(ctx, domain)
	if err == nil && len(addrs) > 0 {
		res.Deliverable = true
		res.Detail = "no MX record, A fallback"
		return res, nil
	}

	res.Detail = "domain does not resolve"
	return res, nil
}

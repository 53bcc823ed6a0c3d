package utils

import (
	"net/netip"
	"net/url"
	"strings"
)

// CORSConfig decides which browser origins may call the API.
type CORSConfig struct {
	// Origins are exact scheme://host[:port] values. Case and a trailing
	// slash are ignored.
	Origins []string
	// AllowPrivate admits localhost, loopback and private-network addresses
	// on any port, for running the SPA dev server against a local BFF.
	AllowPrivate bool
}

type originPolicy struct {
	exact        map[string]bool
	allowPrivate bool
}

func newOriginPolicy(cfg CORSConfig) originPolicy {
	p := originPolicy{exact: make(map[string]bool, len(cfg.Origins)), allowPrivate: cfg.AllowPrivate}
	for _, origin := range cfg.Origins {
		if key, _, ok := originKey(origin); ok {
			p.exact[key] = true
		}
	}
	return p
}

// originKey reduces an origin to lower-case scheme://host[:port] and also
// returns its bare hostname.
func originKey(origin string) (key, host string, ok bool) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(origin), "/"))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", false
	}
	if u.Path != "" || u.RawQuery != "" || u.User != nil {
		return "", "", false
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), strings.ToLower(u.Hostname()), true
}

func (p originPolicy) allows(origin string) bool {
	key, host, ok := originKey(origin)
	if !ok {
		return false
	}
	return p.exact[key] || (p.allowPrivate && isPrivateHost(host))
}

// isPrivateHost reports whether host names this machine or an address that
// is not routable on the public internet.
func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
}

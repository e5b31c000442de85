// Package validation checks user input before it is sent to the API.
//
// Webhook targets get basic SSRF screening: cloud metadata endpoints,
// link-local and private addresses are refused. Loopback stays allowed so a
// local receiver can be used during development. Host names are not resolved.
package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MaxURLLength is the longest webhook URL accepted.
const MaxURLLength = 2048

var privateNetworks = mustParseCIDRs(
	"10.0.0.0/8",     // RFC1918
	"172.16.0.0/12",  // RFC1918
	"192.168.0.0/16", // RFC1918
	"100.64.0.0/10",  // RFC6598 shared address space
	"fc00::/7",       // RFC4193 unique local
)

var metadataHosts = map[string]bool{
	"169.254.169.254":          true,
	"fd00:ec2::254":            true,
	"metadata.google.internal": true,
	"metadata":                 true,
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		out = append(out, network)
	}
	return out
}

// ValidateWebhookURL checks that rawURL is an absolute http(s) URL whose host
// is not an internal address.
func ValidateWebhookURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", MaxURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: only http and https are allowed, got %q", parsed.Scheme)
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return fmt.Errorf("URL must contain a hostname")
	}
	if metadataHosts[hostname] {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return validateIP(ip)
	}
	return nil
}

func validateIP(ip net.IP) error {
	if ip.IsLoopback() {
		return nil
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("link-local IP addresses are not allowed")
	}
	if ip.IsUnspecified() || ip.IsMulticast() {
		return fmt.Errorf("IP address %s is not a valid webhook target", ip)
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return fmt.Errorf("private IP addresses are not allowed")
		}
	}
	return nil
}

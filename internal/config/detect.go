package config

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// MXLookupFunc resolves the MX records of a domain
type MXLookupFunc func(ctx context.Context, domain string) ([]*net.MX, error)

var (
	googleMXPatterns = []string{
		"aspmx.l.google.com",
		"googlemail.com",
		"google.com",
	}
	office365MXPatterns = []string{
		"protection.outlook.com",
		"mail.protection.outlook.com",
		"onmicrosoft.com",
	}
)

// Detection is the outcome of provider detection for an address
type Detection struct {
	Service Service
	// Warning is set when the result came from a heuristic or the credentials look incomplete
	Warning string
}

// ServiceDetector guesses which provider hosts an address
type ServiceDetector struct {
	resolver *AccountResolver
	lookupMX MXLookupFunc
}

// NewServiceDetector creates a detector. A nil lookup uses the system resolver.
func NewServiceDetector(resolver *AccountResolver, lookupMX MXLookupFunc) *ServiceDetector {
	if lookupMX == nil {
		lookupMX = net.DefaultResolver.LookupMX
	}
	return &ServiceDetector{resolver: resolver, lookupMX: lookupMX}
}

// Detect returns the provider for an address: configured accounts first, then MX records,
// then domain suffixes, then whichever provider has credentials configured.
func (d *ServiceDetector) Detect(ctx context.Context, address string) (Detection, error) {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return Detection{}, fmt.Errorf("invalid email address %q", address)
	}
	domain := strings.ToLower(address[at+1:])

	for _, service := range []Service{ServiceGmail, ServiceOutlook} {
		if d.resolver.HasCredentials(service, address) {
			return Detection{Service: service}, nil
		}
	}

	if service, ok := d.fromMX(ctx, domain); ok {
		det := Detection{Service: service}
		if !d.resolver.HasCredentials(service, address) {
			det.Warning = fmt.Sprintf("%s credentials not properly configured for %s", service, address)
		}
		return det, nil
	}

	var det Detection
	switch {
	case strings.HasSuffix(domain, ".in"):
		det.Service = ServiceGmail
	case strings.HasSuffix(domain, ".cloud"):
		det.Service = ServiceOutlook
	case d.resolver.HasCredentials(ServiceGmail, ""):
		return Detection{Service: ServiceGmail, Warning: "Defaulting to Gmail for unknown domain"}, nil
	case d.resolver.HasCredentials(ServiceOutlook, ""):
		return Detection{Service: ServiceOutlook, Warning: "Defaulting to Office 365 for unknown domain"}, nil
	default:
		return Detection{}, fmt.Errorf("%w: no valid email service credentials", ErrNoAccounts)
	}

	if !d.resolver.HasCredentials(det.Service, "") {
		det.Warning = fmt.Sprintf("%s credentials not properly configured", det.Service)
	}
	return det, nil
}

func (d *ServiceDetector) fromMX(ctx context.Context, domain string) (Service, bool) {
	records, err := d.lookupMX(ctx, domain)
	if err != nil {
		return "", false
	}

	hosts := make([]string, 0, len(records))
	for _, mx := range records {
		hosts = append(hosts, strings.ToLower(mx.Host))
	}

	if matchesAny(hosts, googleMXPatterns) {
		return ServiceGmail, true
	}
	if matchesAny(hosts, office365MXPatterns) {
		return ServiceOutlook, true
	}
	return "", false
}

func matchesAny(hosts, patterns []string) bool {
	for _, host := range hosts {
		for _, p := range patterns {
			if strings.Contains(host, p) {
				return true
			}
		}
	}
	return false
}

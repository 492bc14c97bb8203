package senders

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// IgnoreList matches senders whose domain should never get an automated reply
type IgnoreList struct {
	domains []string
	logger  *zap.Logger
}

// NewIgnoreList creates a new ignore list. Entries may be bare domains
// ("example.com") or wildcard subdomains ("*.example.com").
func NewIgnoreList(domains []string, logger *zap.Logger) *IgnoreList {
	// Normalize domains (lowercase)
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized sender ignore list", zap.Strings("domains", normalized))
	}

	return &IgnoreList{
		domains: normalized,
		logger:  logger,
	}
}

// Ignored reports whether the sender's domain is on the list. The sender may
// be a bare address or a display-name form like "Jane <jane@example.com>".
func (l *IgnoreList) Ignored(sender string) bool {
	if len(l.domains) == 0 {
		return false
	}

	domain := Domain(sender)
	if domain == "" {
		return false
	}

	for _, ignored := range l.domains {
		if ignored == domain || (strings.HasPrefix(ignored, "*.") && strings.HasSuffix(domain, ignored[1:])) {
			if l.logger != nil {
				l.logger.Debug("Sender domain is ignored",
					zap.String("domain", domain),
					zap.String("sender", sender))
			}
			return true
		}
	}

	return false
}

// Domain returns the lowercased domain of a sender, or "" if none can be parsed
func Domain(sender string) string {
	addr := strings.TrimSpace(sender)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], "> "))
}

// Address returns the bare address of a sender, or the trimmed input when it
// does not parse
func Address(sender string) string {
	addr := strings.TrimSpace(sender)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		return parsed.Address
	}
	return strings.Trim(addr, "<> ")
}

// SameAddress reports whether sender is exactly the given mailbox address,
// ignoring case and any display name
func SameAddress(sender, address string) bool {
	address = strings.TrimSpace(address)
	return address != "" && strings.EqualFold(Address(sender), address)
}

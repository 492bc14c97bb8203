package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Service identifies a mailbox provider
type Service string

const (
	ServiceGmail   Service = "gmail"
	ServiceOutlook Service = "outlook"
)

var (
	// ErrUnknownService is returned for a provider tag other than gmail or outlook
	ErrUnknownService = errors.New("unknown email service")
	// ErrAccountNotFound is returned when an explicitly requested address is not configured
	ErrAccountNotFound = errors.New("account not found")
	// ErrNoAccounts is returned when no account is configured for a provider
	ErrNoAccounts = errors.New("no accounts configured")
	// ErrInvalidAccount is returned when a configured account is missing credentials
	ErrInvalidAccount = errors.New("invalid account configuration")
)

// ParseService converts a provider tag into a Service
func ParseService(s string) (Service, error) {
	switch Service(strings.ToLower(strings.TrimSpace(s))) {
	case ServiceGmail:
		return ServiceGmail, nil
	case ServiceOutlook:
		return ServiceOutlook, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownService, s)
	}
}

// Account is one configured mailbox with its credential bundle
type Account struct {
	Service Service
	Email   string

	// Gmail
	CredentialsFile string
	TokenFile       string

	// Outlook
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Validate checks the credential fields required by the account's provider
func (a Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return fmt.Errorf("%w: %s account without email", ErrInvalidAccount, a.Service)
	}
	switch a.Service {
	case ServiceGmail:
		if a.CredentialsFile == "" {
			return fmt.Errorf("%w: gmail account %s has no credentials_file", ErrInvalidAccount, a.Email)
		}
	case ServiceOutlook:
		if a.TenantID == "" || a.ClientID == "" || a.ClientSecret == "" {
			return fmt.Errorf("%w: outlook account %s needs tenant_id, client_id and client_secret", ErrInvalidAccount, a.Email)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownService, a.Service)
	}
	return nil
}

type gmailAccountEntry struct {
	Email           string `mapstructure:"email"`
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
}

type outlookAccountEntry struct {
	Email        string `mapstructure:"email"`
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// AccountResolver maps a (service, address) pair to a configured account
type AccountResolver struct {
	accounts map[Service][]Account
	invalid  map[string]error
	problems []error
}

// NewAccountResolver loads the accounts from configuration. Entries that fail
// validation are logged and never resolved; they do not affect other accounts.
func NewAccountResolver(cfg *Config, logger *zap.Logger) (*AccountResolver, error) {
	var gmailEntries []gmailAccountEntry
	if err := cfg.GetViper().UnmarshalKey("gmail.accounts", &gmailEntries); err != nil {
		return nil, fmt.Errorf("failed to parse gmail accounts: %w", err)
	}
	var outlookEntries []outlookAccountEntry
	if err := cfg.GetViper().UnmarshalKey("outlook.accounts", &outlookEntries); err != nil {
		return nil, fmt.Errorf("failed to parse outlook accounts: %w", err)
	}

	accounts := make([]Account, 0, len(gmailEntries)+len(outlookEntries))
	for _, e := range gmailEntries {
		tokenFile := e.TokenFile
		if tokenFile == "" && e.CredentialsFile != "" {
			tokenFile = strings.TrimSuffix(e.CredentialsFile, ".json") + "_token.json"
		}
		accounts = append(accounts, Account{
			Service:         ServiceGmail,
			Email:           strings.TrimSpace(e.Email),
			CredentialsFile: e.CredentialsFile,
			TokenFile:       tokenFile,
		})
	}
	for _, e := range outlookEntries {
		accounts = append(accounts, Account{
			Service:      ServiceOutlook,
			Email:        strings.TrimSpace(e.Email),
			TenantID:     e.TenantID,
			ClientID:     e.ClientID,
			ClientSecret: e.ClientSecret,
		})
	}

	r := NewAccountResolverFromAccounts(accounts...)
	for _, err := range r.Problems() {
		logger.Warn("Ignoring unusable account configuration", zap.Error(err))
	}
	return r, nil
}

func accountKey(service Service, email string) string {
	return string(service) + "/" + strings.ToLower(strings.TrimSpace(email))
}

// NewAccountResolverFromAccounts builds a resolver from already parsed
// accounts. Accounts of an unknown service and repeated addresses are
// dropped; accounts missing credentials are kept for listing but never
// resolved. Problems reports each of them.
func NewAccountResolverFromAccounts(accounts ...Account) *AccountResolver {
	r := &AccountResolver{
		accounts: make(map[Service][]Account),
		invalid:  make(map[string]error),
	}

	for _, acc := range accounts {
		if acc.Service != ServiceGmail && acc.Service != ServiceOutlook {
			r.problems = append(r.problems, fmt.Errorf("%w: %q", ErrUnknownService, acc.Service))
			continue
		}
		if r.find(acc.Service, strings.TrimSpace(acc.Email)) >= 0 {
			r.problems = append(r.problems, fmt.Errorf("%w: duplicate %s account %s", ErrInvalidAccount, acc.Service, acc.Email))
			continue
		}
		if err := acc.Validate(); err != nil {
			r.invalid[accountKey(acc.Service, acc.Email)] = err
			r.problems = append(r.problems, err)
		}
		r.accounts[acc.Service] = append(r.accounts[acc.Service], acc)
	}

	return r
}

func (r *AccountResolver) find(service Service, address string) int {
	for i, acc := range r.accounts[service] {
		if strings.EqualFold(strings.TrimSpace(acc.Email), address) {
			return i
		}
	}
	return -1
}

// Problems returns the configuration errors found while building the resolver
func (r *AccountResolver) Problems() []error {
	return append([]error(nil), r.problems...)
}

// Resolve returns the account for the given service and optional address.
// With an empty address the first valid account of the service is returned.
func (r *AccountResolver) Resolve(service Service, address string) (Account, error) {
	accounts := r.accounts[service]
	address = strings.TrimSpace(address)

	if address == "" {
		for _, acc := range accounts {
			if _, bad := r.invalid[accountKey(service, acc.Email)]; !bad {
				return acc, nil
			}
		}
		if len(accounts) > 0 {
			return Account{}, r.invalid[accountKey(service, accounts[0].Email)]
		}
		return Account{}, fmt.Errorf("%w for %s", ErrNoAccounts, service)
	}

	i := r.find(service, address)
	if i < 0 {
		return Account{}, fmt.Errorf("%w: %s account %s", ErrAccountNotFound, service, address)
	}
	if err := r.invalid[accountKey(service, address)]; err != nil {
		return Account{}, err
	}
	return accounts[i], nil
}

// Accounts returns a copy of the configured accounts for a service
func (r *AccountResolver) Accounts(service Service) []Account {
	out := make([]Account, len(r.accounts[service]))
	copy(out, r.accounts[service])
	return out
}

// All returns every configured account, gmail first, including accounts
// that fail validation
func (r *AccountResolver) All() []Account {
	return append(r.Accounts(ServiceGmail), r.Accounts(ServiceOutlook)...)
}

// Usable returns the accounts that pass validation, gmail first
func (r *AccountResolver) Usable() []Account {
	var out []Account
	for _, acc := range r.All() {
		if _, bad := r.invalid[accountKey(acc.Service, acc.Email)]; !bad {
			out = append(out, acc)
		}
	}
	return out
}

// HasCredentials reports whether the service has a usable account, optionally for a specific address
func (r *AccountResolver) HasCredentials(service Service, address string) bool {
	_, err := r.Resolve(service, address)
	return err == nil
}

package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ErrNoToken is returned when an account has not been authorized yet
var ErrNoToken = errors.New("no saved gmail token")

func oauthConfig(account config.Account) (*oauth2.Config, error) {
	data, err := os.ReadFile(account.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", account.CredentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(data, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", account.CredentialsFile, err)
	}
	return cfg, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, err
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", path, err)
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open token file %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// persistingTokenSource writes refreshed tokens back to the token file
type persistingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			s.logger.Warn("Failed to persist refreshed token", zap.String("path", s.path), zap.Error(err))
		}
	}
	return tok, nil
}

// TokenSource returns a refreshing token source for an authorized account
func TokenSource(ctx context.Context, account config.Account, logger *zap.Logger) (oauth2.TokenSource, error) {
	cfg, err := oauthConfig(account)
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(account.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w for %s (run email-agent auth --account %s): %v", ErrNoToken, account.Email, account.Email, err)
	}
	return &persistingTokenSource{
		base:   cfg.TokenSource(ctx, tok),
		path:   account.TokenFile,
		logger: logger,
		last:   tok.AccessToken,
	}, nil
}

// NewAPI creates an authorized Gmail API service for an account
func NewAPI(ctx context.Context, account config.Account, logger *zap.Logger) (*gmail.Service, error) {
	ts, err := TokenSource(ctx, account, logger)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return svc, nil
}

// Authorize runs the interactive consent flow for an account and saves the token
func Authorize(ctx context.Context, account config.Account, in io.Reader, out io.Writer) error {
	cfg, err := oauthConfig(account)
	if err != nil {
		return err
	}

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("login_hint", account.Email))
	fmt.Fprintf(out, "Open the following link in your browser, sign in as %s and paste the authorization code:\n\n%s\n\nCode: ", account.Email, authURL)

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("empty authorization code")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := saveToken(account.TokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", account.TokenFile)
	return nil
}

// Package auth resolves the tenant secret and turns a configured credential
// into the Authorization header value shared by every API request.
package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/term"

	"github.com/harness/cpi-sync/module/cpi/types"
	"github.com/harness/cpi-sync/util/common/errors"
)

// Prompter asks the operator for a secret
type Prompter interface {
	ReadSecret(prompt string) (string, error)
}

// TerminalPrompter reads a secret from a terminal without echoing it
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads from stdin
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) ReadSecret(prompt string) (string, error) {
	fd := int(p.In.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}
	fmt.Fprint(p.Out, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// ResolveSecret returns the secret of cred. The configured environment
// variable wins; otherwise the prompter is asked unless noInput is set.
func ResolveSecret(cred types.Credential, noInput bool, prompter Prompter) (string, error) {
	principal := cred.Principal()
	if name := cred.SecretEnvironmentVariable(); name != "" {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			log.Debug().Str("variable", name).Msg("Using secret from environment")
			return value, nil
		}
		log.Warn().Str("variable", name).Msg("Secret environment variable is not set")
	}

	if noInput {
		return "", errors.NewCredentialError(principal,
			"no environment variable is set and input is disabled with --no-input")
	}
	if prompter == nil {
		return "", errors.NewCredentialError(principal, "no prompt available")
	}

	secret, err := prompter.ReadSecret(fmt.Sprintf("Please enter password/secret for %s: ", principal))
	if err != nil {
		return "", errors.NewCredentialError(principal, err.Error())
	}
	if secret == "" {
		return "", errors.NewCredentialError(principal, "empty secret")
	}
	return secret, nil
}

// BasicAuthorization builds a "Basic ..." header value
func BasicAuthorization(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Authorize returns the Authorization header value for cred. For OAuth
// client credentials a token is requested once through httpClient; a nil
// httpClient uses http.DefaultClient.
func Authorize(ctx context.Context, cred types.Credential, secret string, httpClient *http.Client) (string, error) {
	switch {
	case cred.SUser != nil:
		return BasicAuthorization(cred.SUser.Username, secret), nil

	case cred.OAuth != nil:
		cfg := clientcredentials.Config{
			ClientID:     cred.OAuth.ClientID,
			ClientSecret: secret,
			TokenURL:     cred.OAuth.TokenEndpointURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		token, err := cfg.Token(ctx)
		if err != nil {
			return "", errors.NewCredentialError(cred.OAuth.ClientID, fmt.Sprintf("token request failed: %v", err))
		}
		log.Debug().Str("client_id", cred.OAuth.ClientID).Time("expiry", token.Expiry).Msg("Obtained access token")
		return token.Type() + " " + token.AccessToken, nil
	}
	return "", errors.NewValidationError("tenant.credential", "no credential configured")
}

// Package googleauth builds OAuth2 HTTP clients for the installed-app
// credentials shared by the Gmail watcher and the Admin Directory.
package googleauth

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoCredentials means no OAuth client file was configured.
var ErrNoCredentials = errors.New("google credentials file not configured")

// Options locate the OAuth client and the cached token.
type Options struct {
	CredentialsFile string
	TokenFile       string
	Scopes          []string
	// In and Out drive the one-time consent flow when no token is cached.
	In  io.Reader
	Out io.Writer
}

// HTTPClient returns an authorised client, running the consent flow and
// caching the token when TokenFile does not exist yet.
func HTTPClient(ctx context.Context, opts Options) (*http.Client, error) {
	if opts.CredentialsFile == "" {
		return nil, ErrNoCredentials
	}
	if opts.TokenFile == "" {
		opts.TokenFile = "token.json"
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	b, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, opts.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	tok, err := TokenFromFile(opts.TokenFile)
	if err != nil {
		tok, err = tokenFromWeb(ctx, config, opts.In, opts.Out)
		if err != nil {
			return nil, fmt.Errorf("unable to get token from web: %w", err)
		}
		fmt.Fprintf(opts.Out, "Saving credential file to: %s\n", opts.TokenFile)
		if err := SaveToken(opts.TokenFile, tok); err != nil {
			return nil, err
		}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, baseClient())
	return config.Client(ctx, tok), nil
}

func baseClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}

// TokenFromFile reads a cached token.
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes token to path, readable by the owner only.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	return nil
}

func tokenFromWeb(ctx context.Context, config *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser then type the authorization code: \n%v\n", authURL)

	line, err := bufio.NewReader(in).ReadString('\n')
	authCode := strings.TrimSpace(line)
	if authCode == "" {
		if err == nil {
			err = errors.New("empty code")
		}
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

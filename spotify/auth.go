package spotify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const tokenFilePermission = 0o600

// Scopes requested by the skin.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopePlaylistReadPrivate,
}

// TokenData is the on-disk token file.
type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

// Credentials are the Web API application settings.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
}

// Authenticator runs the OAuth flow and keeps the token file.
type Authenticator struct {
	auth        *spotifyauth.Authenticator
	redirectURL string
	tokenPath   string
	logger      *zap.Logger

	// OpenURL opens the authorization page; replaced in tests.
	OpenURL func(string) error
}

// NewAuthenticator creates an Authenticator for creds.
func NewAuthenticator(creds Credentials, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		auth: spotifyauth.New(
			spotifyauth.WithRedirectURL(creds.RedirectURL),
			spotifyauth.WithScopes(Scopes...),
			spotifyauth.WithClientID(creds.ClientID),
			spotifyauth.WithClientSecret(creds.ClientSecret),
		),
		redirectURL: creds.RedirectURL,
		tokenPath:   creds.TokenPath,
		logger:      logger,
		OpenURL:     browser.OpenURL,
	}
}

// LoadToken reads the saved token.
func (a *Authenticator) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if tokenData.Token == nil {
		return nil, ErrNotAuthenticated
	}
	return tokenData.Token, nil
}

// SaveToken writes tok to the token file.
func (a *Authenticator) SaveToken(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(a.tokenPath), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(TokenData{Token: tok}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return os.WriteFile(a.tokenPath, data, tokenFilePermission)
}

// Login runs the authorization code flow: it serves the redirect URL
// locally, shows the authorization link through prompt and, when autoOpen is
// set, opens it in the browser.
func (a *Authenticator) Login(ctx context.Context, autoOpen bool, prompt func(authURL string)) (*oauth2.Token, error) {
	redirect, err := url.Parse(a.redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url %q: %w", a.redirectURL, err)
	}

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	type result struct {
		tok *oauth2.Token
		err error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		tok, err := a.auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "Authorization failed", http.StatusForbidden)
		} else {
			fmt.Fprintln(w, "Login complete. You can close this window.")
		}
		select {
		case results <- result{tok: tok, err: err}:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("Auth callback server stopped", zap.Error(err))
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := a.auth.AuthURL(state)
	if prompt != nil {
		prompt(authURL)
	}
	if autoOpen && a.OpenURL != nil {
		if err := a.OpenURL(authURL); err != nil {
			a.logger.Warn("Failed to open browser", zap.Error(err))
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, fmt.Errorf("failed to exchange code for token: %w", res.err)
		}
		if err := a.SaveToken(res.tok); err != nil {
			a.logger.Warn("Failed to save token", zap.Error(err))
		}
		a.logger.Info("OAuth flow completed successfully")
		return res.tok, nil
	}
}

// Connect builds a Client from the saved token. Without a usable token it
// runs Login when autoAuth is set and returns ErrNotAuthenticated otherwise.
func (a *Authenticator) Connect(ctx context.Context, autoAuth bool, prompt func(authURL string), opts ...spotifyapi.ClientOption) (*Client, error) {
	tok, err := a.LoadToken()
	if err != nil {
		if !errors.Is(err, ErrNotAuthenticated) {
			a.logger.Warn("Ignoring unreadable token file", zap.Error(err))
		}
		if !autoAuth {
			return nil, wrap("connect", ErrNotAuthenticated, nil)
		}
		if tok, err = a.Login(ctx, true, prompt); err != nil {
			return nil, wrap("connect", err, nil)
		}
	}

	client := NewClient(a.auth.Client(ctx, tok), a.logger, opts...)
	client.saveToken = a.SaveToken

	user, err := client.api.CurrentUser(ctx)
	if err != nil {
		werr := wrap("connect", err, nil)
		if !errors.Is(werr, ErrNotAuthenticated) || !autoAuth {
			return nil, werr
		}
		a.logger.Warn("Saved token rejected, starting OAuth flow", zap.Error(err))
		if tok, err = a.Login(ctx, true, prompt); err != nil {
			return nil, wrap("connect", err, nil)
		}
		client = NewClient(a.auth.Client(ctx, tok), a.logger, opts...)
		client.saveToken = a.SaveToken
	} else {
		a.logger.Info("Authenticated", zap.String("user", user.DisplayName))
	}

	return client, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

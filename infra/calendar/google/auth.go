package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// LoadOAuthConfig reads an installed-app client secret file.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := googleoauth.ConfigFromJSON(b, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, fmt.Errorf("open token: %w", err)
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// savingSource writes refreshed tokens back to disk.
type savingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	last string
	path string
}

func persistingSource(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, path string) oauth2.TokenSource {
	return &savingSource{src: cfg.TokenSource(ctx, tok), last: tok.AccessToken, path: path}
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		// A failed write only costs a refresh on the next run.
		_ = SaveToken(s.path, tok)
	}
	return tok, nil
}

// Authorize runs the installed-app flow: it prints the consent URL to out,
// waits for the redirect on a loopback listener and stores the token.
func Authorize(ctx context.Context, cfg Config, out io.Writer) error {
	cfg.SetDefaults()
	oc, err := LoadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	oc.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if msg := q.Get("error"); msg != "" {
			errs <- fmt.Errorf("authorization denied: %s", msg)
			http.Error(w, "authorization denied", http.StatusForbidden)
			return
		}
		codes <- q.Get("code")
		_, _ = io.WriteString(w, "Authorization complete. You can close this window.\n")
	})}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(out, "Open this URL in a browser to authorize calendar access:\n\n%s\n\n", oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		return err
	case code = <-codes:
	}
	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	if err := SaveToken(cfg.TokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token stored in %s\n", cfg.TokenFile)
	return nil
}

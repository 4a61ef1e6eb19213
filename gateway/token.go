package gateway

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// IDTokenMinter mints Google-signed ID tokens for service-to-service
// calls using the hosting platform's default credentials. Token sources
// are cached per audience; the underlying source refreshes tokens before
// expiry on its own.
type IDTokenMinter struct {
	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

func NewIDTokenMinter() *IDTokenMinter {
	return &IDTokenMinter{sources: make(map[string]oauth2.TokenSource)}
}

func (m *IDTokenMinter) MintToken(ctx context.Context, audience string) (string, error) {
	source, err := m.sourceFor(ctx, audience)
	if err != nil {
		return "", fmt.Errorf("creating token source for %s: %w", audience, err)
	}
	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("fetching token for %s: %w", audience, err)
	}
	return token.AccessToken, nil
}

func (m *IDTokenMinter) sourceFor(ctx context.Context, audience string) (oauth2.TokenSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if source, ok := m.sources[audience]; ok {
		return source, nil
	}
	source, err := idtoken.NewTokenSource(ctx, audience)
	if err != nil {
		return nil, err
	}
	m.sources[audience] = source
	return source, nil
}

// StaticTokenMinter returns one fixed token for every audience. Used in
// tests and local development without platform credentials.
type StaticTokenMinter struct {
	Token string
}

func (m StaticTokenMinter) MintToken(ctx context.Context, audience string) (string, error) {
	return m.Token, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Static errors for err113 compliance.
var (
	ErrNoSourcesConfigured = errors.New("no credential sources configured")
	ErrNoSourceYielded     = errors.New("no credential source yielded a usable key pair")
)

// CredentialSource supplies the key pair for each request. Implementations
// may rotate keys between calls; the HTTP layer asks again on every attempt.
type CredentialSource interface {
	Credentials(ctx context.Context) (*Credentials, error)
}

// StaticSource returns the same credentials for every request.
type StaticSource struct {
	creds *Credentials
}

// NewStaticSource creates a source around a fixed key pair.
func NewStaticSource(creds *Credentials) *StaticSource {
	return &StaticSource{creds: creds}
}

// Credentials implements CredentialSource.
func (s *StaticSource) Credentials(ctx context.Context) (*Credentials, error) {
	if err := s.creds.Validate(); err != nil {
		return nil, err
	}

	return s.creds, nil
}

// EnvSource reads credentials from the environment on every call, so key
// rotation through the environment is picked up without a restart.
type EnvSource struct{}

// NewEnvSource creates an environment-backed source.
func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

// Credentials implements CredentialSource.
func (s *EnvSource) Credentials(ctx context.Context) (*Credentials, error) {
	creds, err := FromEnv()
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// ChainSource tries each source in order and sticks with the first one
// that yields a valid pair. Later calls go straight to the source that
// worked; if it stops working the chain is walked again from the start.
type ChainSource struct {
	sources []CredentialSource
	mutex   sync.Mutex
	active  int
}

// NewChainSource creates a chain over the given sources.
func NewChainSource(sources ...CredentialSource) *ChainSource {
	return &ChainSource{
		sources: sources,
		active:  -1,
	}
}

// Credentials implements CredentialSource.
func (s *ChainSource) Credentials(ctx context.Context) (*Credentials, error) {
	if len(s.sources) == 0 {
		return nil, ErrNoSourcesConfigured
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Prefer the source that satisfied the previous call.
	if s.active >= 0 {
		creds, err := s.sources[s.active].Credentials(ctx)
		if err == nil {
			return creds, nil
		}

		s.active = -1
	}

	var lastErr error

	for i, source := range s.sources {
		creds, err := source.Credentials(ctx)
		if err != nil {
			lastErr = err

			continue
		}

		s.active = i

		return creds, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrNoSourceYielded, lastErr)
}

// Package platform resolves live metadata and pull URLs for supported
// streaming services.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/livecap/livecap/internal/model"
)

var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Resolver fetches the current live state of a channel URL, including
// candidate stream URLs when the channel is broadcasting.
type Resolver interface {
	Kind() model.PlatformKind
	Resolve(ctx context.Context, roomURL string) (*model.LiveDescriptor, error)
}

// Set maps platform kinds to resolvers.
type Set struct {
	resolvers map[model.PlatformKind]Resolver
}

func NewSet(resolvers ...Resolver) *Set {
	s := &Set{resolvers: make(map[model.PlatformKind]Resolver, len(resolvers))}
	for _, r := range resolvers {
		s.resolvers[r.Kind()] = r
	}
	return s
}

// DefaultSet returns the built-in resolvers sharing one HTTP client.
func DefaultSet() *Set {
	c := NewClient()
	return NewSet(NewDouyin(c), NewTiktok(c), NewXiaohongshu(c))
}

// For picks the resolver for a channel URL.
func (s *Set) For(roomURL string) (Resolver, error) {
	kind := model.PlatformKindOf(roomURL)
	r, ok := s.resolvers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, kind)
	}
	return r, nil
}

// Resolve is a convenience that picks the resolver for roomURL and runs it.
func (s *Set) Resolve(ctx context.Context, roomURL string) (*model.LiveDescriptor, error) {
	r, err := s.For(roomURL)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, roomURL)
}

// Package profile holds the visitor's cosmetic viewing profile. The label
// only changes how navigation is decorated; it is never an access control.
package profile

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reelfolio/reelfolio/internal/kvstore"
)

// StorageKey is where the selection is persisted
const StorageKey = "selectedProfile"

// Profile is one of the fixed viewing profiles
type Profile string

const (
	Recruiter   Profile = "recruiter"
	Developer   Profile = "developer"
	Stakeholder Profile = "stakeholder"
	Adventurer  Profile = "adventurer"
)

// Info is the presentation metadata of a profile
type Info struct {
	Profile     Profile
	Name        string
	Color       string
	Description string
}

// All lists the profiles in picker order
var All = []Info{
	{Profile: Recruiter, Name: "Recruiter", Color: "cyan", Description: "Talent acquisition focused view"},
	{Profile: Developer, Name: "Developer", Color: "gray", Description: "Technical project showcase"},
	{Profile: Stakeholder, Name: "Stakeholder", Color: "red", Description: "Business impact perspective"},
	{Profile: Adventurer, Name: "Adventurer", Color: "orange", Description: "Creative projects & experiments"},
}

var ErrUnknownProfile = errors.New("unknown profile")

// Parse accepts a known label, case-insensitively
func Parse(label string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(label)))
	for _, info := range All {
		if info.Profile == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownProfile, label)
}

// Info returns the presentation metadata for p
func (p Profile) Info() Info {
	for _, info := range All {
		if info.Profile == p {
			return info
		}
	}
	return Info{Profile: p, Name: string(p)}
}

func (p Profile) String() string {
	return string(p)
}

// Store serves the selected profile from memory after a single read at
// construction.
type Store struct {
	kv     kvstore.Store
	logger zerolog.Logger

	mu       sync.RWMutex
	selected Profile
}

// NewStore loads the persisted selection. Unreadable or unknown values are
// logged and treated as no selection.
func NewStore(kv kvstore.Store, logger zerolog.Logger) *Store {
	s := &Store{
		kv:     kv,
		logger: logger.With().Str("component", "profile_store").Logger(),
	}

	raw, err := kv.Get(StorageKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		s.logger.Warn().Err(err).Msg("Failed to read persisted profile")
	default:
		p, parseErr := Parse(raw)
		if parseErr != nil {
			s.logger.Warn().Str("value", raw).Msg("Ignoring unknown persisted profile")
			break
		}
		s.selected = p
	}

	return s
}

// Selected returns the current profile, if one was ever chosen
func (s *Store) Selected() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != ""
}

// Select updates the in-memory selection and then persists it. The
// in-memory value is kept even when persisting fails; the error is returned
// so the caller can log it.
func (s *Store) Select(p Profile) error {
	s.mu.Lock()
	s.selected = p
	s.mu.Unlock()

	if err := s.kv.Set(StorageKey, string(p)); err != nil {
		s.logger.Warn().Err(err).Str("profile", string(p)).Msg("Failed to persist profile selection")
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

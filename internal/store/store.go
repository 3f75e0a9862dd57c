package store

import (
	"errors"
	"regexp"

	"github.com/dgnsrekt/tv_overlay/internal/drawing"
	"github.com/dgnsrekt/tv_overlay/internal/overlay"
)

// ErrNotFound reports a missing script. Drawing sets are never missing: a
// profile that was never saved loads as an empty set.
var ErrNotFound = errors.New("not found")

// Store persists chart scripts keyed by (owner, script id) and one versioned
// drawing set per profile. It is a best-effort mirror of the in-memory state:
// callers log and swallow save failures rather than rolling anything back.
type Store interface {
	// SaveScript upserts idempotently on (owner, script.ID).
	SaveScript(owner string, script overlay.ChartScript) error
	GetScript(owner, id string) (overlay.ChartScript, error)
	// ListScripts returns the owner's scripts in scope for symbol; an empty
	// symbol returns everything. Universal scripts (no symbol) always match.
	ListScripts(owner, symbol string) ([]overlay.ChartScript, error)
	DeleteScript(owner, id string) error

	SaveDrawings(profile string, set drawing.SavedSet) error
	// LoadDrawings returns the migrated set for a profile, empty when the
	// profile has never been saved.
	LoadDrawings(profile string) (drawing.SavedSet, error)

	Close() error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidKey guards owner, profile and script id tokens that end up in file
// paths and database keys.
func ValidKey(key string) bool {
	return keyRe.MatchString(key)
}

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgnsrekt/tv_overlay/internal/drawing"
	"github.com/dgnsrekt/tv_overlay/internal/overlay"
)

// FileStore keeps scripts and drawing sets as JSON files under a data
// directory: scripts/<owner>/<id>.json and drawings/<profile>.json.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a FileStore and ensures its directories exist.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"scripts", "drawings"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("file store: mkdir %s: %w", sub, err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) scriptPath(owner, id string) string {
	return filepath.Join(s.dir, "scripts", owner, id+".json")
}

func (s *FileStore) drawingsPath(profile string) string {
	return filepath.Join(s.dir, "drawings", profile+".json")
}

func validateScriptKey(owner, id string) error {
	if !ValidKey(owner) {
		return fmt.Errorf("file store: invalid owner: %q", owner)
	}
	if !ValidKey(id) {
		return fmt.Errorf("file store: invalid script id: %q", id)
	}
	return nil
}

func (s *FileStore) SaveScript(owner string, script overlay.ChartScript) error {
	if err := validateScriptKey(owner, script.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dir, "scripts", owner)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file store: mkdir owner: %w", err)
	}
	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: marshal script: %w", err)
	}
	if err := os.WriteFile(s.scriptPath(owner, script.ID), data, 0o644); err != nil {
		return fmt.Errorf("file store: write script: %w", err)
	}
	return nil
}

func (s *FileStore) GetScript(owner, id string) (overlay.ChartScript, error) {
	if err := validateScriptKey(owner, id); err != nil {
		return overlay.ChartScript{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.scriptPath(owner, id))
	if err != nil {
		if os.IsNotExist(err) {
			return overlay.ChartScript{}, fmt.Errorf("script %s/%s: %w", owner, id, ErrNotFound)
		}
		return overlay.ChartScript{}, fmt.Errorf("file store: read script: %w", err)
	}
	var script overlay.ChartScript
	if err := json.Unmarshal(data, &script); err != nil {
		return overlay.ChartScript{}, fmt.Errorf("file store: unmarshal script: %w", err)
	}
	return script, nil
}

func (s *FileStore) ListScripts(owner, symbol string) ([]overlay.ChartScript, error) {
	if !ValidKey(owner) {
		return nil, fmt.Errorf("file store: invalid owner: %q", owner)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "scripts", owner, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("file store: glob: %w", err)
	}

	scripts := make([]overlay.ChartScript, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var script overlay.ChartScript
		if err := json.Unmarshal(data, &script); err != nil {
			continue
		}
		if symbol != "" && !script.AppliesTo(symbol) {
			continue
		}
		scripts = append(scripts, script)
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].ID < scripts[j].ID })
	return scripts, nil
}

func (s *FileStore) DeleteScript(owner, id string) error {
	if err := validateScriptKey(owner, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.scriptPath(owner, id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("script %s/%s: %w", owner, id, ErrNotFound)
		}
		return fmt.Errorf("file store: delete script: %w", err)
	}
	return nil
}

func (s *FileStore) SaveDrawings(profile string, set drawing.SavedSet) error {
	if !ValidKey(profile) {
		return fmt.Errorf("file store: invalid profile: %q", profile)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: marshal drawings: %w", err)
	}
	if err := os.WriteFile(s.drawingsPath(profile), data, 0o644); err != nil {
		return fmt.Errorf("file store: write drawings: %w", err)
	}
	return nil
}

func (s *FileStore) LoadDrawings(profile string) (drawing.SavedSet, error) {
	if !ValidKey(profile) {
		return drawing.SavedSet{}, fmt.Errorf("file store: invalid profile: %q", profile)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.drawingsPath(profile))
	if err != nil {
		if os.IsNotExist(err) {
			return drawing.SavedSet{Version: drawing.SavedSetVersion}, nil
		}
		return drawing.SavedSet{}, fmt.Errorf("file store: read drawings: %w", err)
	}
	var set drawing.SavedSet
	if err := json.Unmarshal(data, &set); err != nil {
		return drawing.SavedSet{}, fmt.Errorf("file store: unmarshal drawings: %w", err)
	}
	set.Migrate()
	return set, nil
}

func (s *FileStore) Close() error { return nil }

package cards

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

// StorageError is fatal for the affected operation; partial files are
// cleaned up before it propagates.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store owns the on-disk card image directory. The filename convention
// LETTER_word.png is the identity key shared with the poster assembler.
type Store struct {
	log *logger.Logger
	dir string
}

func NewStore(log *logger.Logger, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	return &Store{log: log.With("service", "CardStore"), dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// CardPath is the canonical image path for a pair.
func (s *Store) CardPath(p alphabet.Pair) string {
	return filepath.Join(s.dir, p.FileName())
}

func (s *Store) MetadataPath(p alphabet.Pair) string {
	return filepath.Join(s.dir, p.MetadataFileName())
}

// Exists reports whether the canonical card file is already on disk, which
// short-circuits generation for that pair.
func (s *Store) Exists(p alphabet.Pair) bool {
	info, err := os.Stat(s.CardPath(p))
	return err == nil && !info.IsDir()
}

// WriteCard persists image bytes to the canonical path, overwriting any
// prior attempt. A failed write removes the partial file.
func (s *Store) WriteCard(p alphabet.Pair, data []byte) (string, error) {
	path := s.CardPath(p)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return "", &StorageError{Op: "write", Path: path, Err: err}
	}
	return path, nil
}

// Metadata is the sidecar JSON recorded next to each card.
type Metadata struct {
	Letter        string `json:"letter"`
	Word          string `json:"word"`
	Filename      string `json:"filename"`
	Filepath      string `json:"filepath"`
	Timestamp     string `json:"timestamp"`
	Model         string `json:"model"`
	ImageSize     string `json:"image_size"`
	ImageQuality  string `json:"image_quality"`
	Prompt        string `json:"prompt"`
	AttemptsUsed  int    `json:"attempts_used"`
	OCRValidation string `json:"ocr_validation"`
}

// WriteMetadata is best effort: a metadata write failure is logged, never
// fatal, because the card image itself is the artifact that matters.
func (s *Store) WriteMetadata(p alphabet.Pair, meta Metadata) {
	meta.Filename = p.FileName()
	meta.Filepath = s.CardPath(p)
	if meta.Timestamp == "" {
		meta.Timestamp = time.Now().Format(time.RFC3339)
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		s.log.Warn("marshal metadata failed", "letter", p.Letter, "error", err)
		return
	}
	path := s.MetadataPath(p)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		s.log.Warn("write metadata failed", "path", path, "error", err)
	}
}

// AvailableLetters scans the store for canonical card files and maps each
// known letter to its image path.
func (s *Store) AvailableLetters() (map[string]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &StorageError{Op: "scan", Path: s.dir, Err: err}
	}
	out := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		letter, ok := alphabet.ParseFileName(e.Name())
		if !ok {
			continue
		}
		if _, known := alphabet.WordFor(letter); known {
			out[letter] = filepath.Join(s.dir, e.Name())
		}
	}
	return out, nil
}

// MissingLetters returns the alphabet letters with no card on disk, sorted.
func (s *Store) MissingLetters() ([]string, error) {
	available, err := s.AvailableLetters()
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, l := range alphabet.Letters() {
		if _, ok := available[l]; !ok {
			missing = append(missing, l)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// RemoveAll deletes every file in the store directory. Used by cleanup.
func (s *Store) RemoveAll() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, &StorageError{Op: "scan", Path: s.dir, Err: err}
	}
	deleted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			return deleted, &StorageError{Op: "remove", Path: path, Err: err}
		}
		deleted++
	}
	return deleted, nil
}

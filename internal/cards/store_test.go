package cards

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAvailableLettersFiltersNonCanonicalFiles(t *testing.T) {
	store := newTestStore(t)
	pair := testPair(t, "Б", "барабан")
	if _, err := store.WriteCard(pair, pngBytes(t, 10, 10)); err != nil {
		t.Fatalf("write card: %v", err)
	}
	for _, name := range []string{"generation_report_x.json", "junk.png", "Z_zebra.png"} {
		if err := os.WriteFile(filepath.Join(store.Dir(), name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write noise file: %v", err)
		}
	}

	available, err := store.AvailableLetters()
	if err != nil {
		t.Fatalf("available letters: %v", err)
	}

	if len(available) != 1 {
		t.Fatalf("available: want=1 got=%v", available)
	}
	if available["Б"] != store.CardPath(pair) {
		t.Fatalf("path: want=%s got=%s", store.CardPath(pair), available["Б"])
	}
}

func TestMissingLetters(t *testing.T) {
	store := newTestStore(t)
	pair := testPair(t, "А", "арбуз")
	if _, err := store.WriteCard(pair, pngBytes(t, 10, 10)); err != nil {
		t.Fatalf("write card: %v", err)
	}

	missing, err := store.MissingLetters()
	if err != nil {
		t.Fatalf("missing letters: %v", err)
	}

	if len(missing) != 32 {
		t.Fatalf("missing: want=32 got=%d", len(missing))
	}
	for _, l := range missing {
		if l == "А" {
			t.Fatalf("А has a card and must not be missing")
		}
	}
}

func TestWriteMetadataRoundTrip(t *testing.T) {
	store := newTestStore(t)
	pair := testPair(t, "Ж", "жираф")

	store.WriteMetadata(pair, Metadata{
		Letter:        pair.Letter,
		Word:          pair.Word,
		Model:         "gpt-image-1",
		AttemptsUsed:  2,
		OCRValidation: "passed",
	})

	raw, err := os.ReadFile(store.MetadataPath(pair))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.Filename != "Ж_жираф.png" {
		t.Fatalf("filename: want=Ж_жираф.png got=%s", meta.Filename)
	}
	if meta.Timestamp == "" {
		t.Fatalf("timestamp should be stamped when empty")
	}
	if meta.AttemptsUsed != 2 || meta.OCRValidation != "passed" {
		t.Fatalf("fields lost: %+v", meta)
	}
}

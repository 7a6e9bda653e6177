package simreport_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ubi-africa/ridesim/internal/simreport"
)

func TestWriteJSONAtomicAndReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.json")

	payload := map[string]int{"a": 1, "b": 2}
	if err := simreport.WriteJSON(path, payload); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["a"] != 1 || got["b"] != 2 {
		t.Fatalf("unexpected roundtrip contents: %+v", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file after atomic write (no leftover temp file), got %d", len(entries))
	}
}

func TestWriteJSONOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.json")

	if err := simreport.WriteJSON(path, map[string]int{"v": 1}); err != nil {
		t.Fatal(err)
	}
	if err := simreport.WriteJSON(path, map[string]int{"v": 2}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var got map[string]int
	json.Unmarshal(data, &got)
	if got["v"] != 2 {
		t.Fatalf("expected overwritten value 2, got %d", got["v"])
	}
}

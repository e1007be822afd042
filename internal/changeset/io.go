package changeset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilnforge/changeforge/internal/canonjson"
)

// writeCanonicalJSON atomically writes v's canonical encoding to path:
// write to a sibling temp file, then rename over the destination, so a
// concurrent reader never observes a partial write.
func writeCanonicalJSON(path string, v any) error {
	b, err := canonjson.Marshal(v)
	if err != nil {
		return fmt.Errorf("changeset: encode %s: %w", path, err)
	}
	return writeFileAtomic(path, b)
}

func writeFileAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("changeset: mkdir for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("changeset: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("changeset: write temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("changeset: close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("changeset: rename into %s: %w", path, err)
	}
	return nil
}

func writeTextFile(path, content string) error {
	return writeFileAtomic(path, []byte(content))
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return unmarshalStrict(b, v)
}

func dirOf(path string) string {
	return filepath.Dir(path)
}

func encodeLock(lock LockFile) ([]byte, error) {
	return canonjson.Marshal(lock)
}

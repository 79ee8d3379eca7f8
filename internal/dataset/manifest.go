package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const manifestName = "manifest.cbor"

// Record is the manifest entry for one cache artifact: the identity key
// plus enough metadata to inspect the cache without opening artifacts.
type Record struct {
	ModelID   string    `cbor:"model_id"`
	BlockSize int       `cbor:"block_size"`
	Source    string    `cbor:"source"`
	Blocks    int       `cbor:"blocks"`
	CreatedAt time.Time `cbor:"created_at"`
}

// ReadManifest returns the artifact-name keyed manifest of a cache dir.
// A missing manifest is an empty one.
func ReadManifest(cacheDir string) (map[string]Record, error) {
	raw, err := os.ReadFile(filepath.Join(cacheDir, manifestName))
	if os.IsNotExist(err) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache manifest: %w", err)
	}

	manifest := map[string]Record{}
	if err := cbor.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrCacheDecode, err)
	}
	return manifest, nil
}

func recordManifest(cacheDir string, key Key, blocks int) error {
	manifest, err := ReadManifest(cacheDir)
	if err != nil {
		return err
	}

	manifest[key.Artifact()] = Record{
		ModelID:   key.ModelID,
		BlockSize: key.BlockSize,
		Source:    key.Source,
		Blocks:    blocks,
		CreatedAt: time.Now().UTC(),
	}

	raw, err := cbor.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode cache manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, manifestName), raw, 0o644); err != nil {
		return fmt.Errorf("write cache manifest: %w", err)
	}
	return nil
}

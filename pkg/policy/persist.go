package policy

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrIndexLoad marks a persisted index that cannot be loaded: missing file,
// corruption, or a format/dimension mismatch. Recovery is a full rebuild from
// the corpus store.
var ErrIndexLoad = errors.New("policy index load failed")

const (
	indexMagic         = "CSPIX"
	indexFormatVersion = 1
)

type indexSnapshot struct {
	Magic         string
	FormatVersion int
	Dim           int
	CorpusVersion int64
	Chunks        []Chunk
}

// Persist serializes the current index generation to path. The snapshot is
// written to a temp file and renamed in so a crash never leaves a truncated
// index behind.
func (ix *Index) Persist(path string) error {
	gen := ix.snapshot()
	snap := indexSnapshot{
		Magic:         indexMagic,
		FormatVersion: indexFormatVersion,
		Dim:           gen.dim,
		CorpusVersion: gen.corpusVersion,
		Chunks:        gen.chunks,
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating index directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".policy-index-*")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding index snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp index file: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

// Load reconstructs the index from a persisted snapshot. The reloaded index
// returns bit-identical search results to the pre-persist index for the same
// query. Any mismatch or corruption fails with ErrIndexLoad.
func (ix *Index) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexLoad, err)
	}
	defer file.Close()

	var snap indexSnapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("%w: decoding snapshot: %v", ErrIndexLoad, err)
	}

	if snap.Magic != indexMagic {
		return fmt.Errorf("%w: not a policy index file", ErrIndexLoad)
	}
	if snap.FormatVersion != indexFormatVersion {
		return fmt.Errorf("%w: format version %d, expected %d", ErrIndexLoad, snap.FormatVersion, indexFormatVersion)
	}
	if expected := ix.Dimension(); expected > 0 && snap.Dim != expected {
		return fmt.Errorf("%w: snapshot dimension %d, index configured for %d", ErrIndexLoad, snap.Dim, expected)
	}

	ix.Reset(snap.Dim, snap.CorpusVersion, snap.Chunks)
	return nil
}

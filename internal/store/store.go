// Package store implements the trajectory store: keyed persistence of named
// JSON artifacts under a per-problem subtree rooted at a configured output
// path. Every pipeline stage reads and writes its artifact here, which is
// what makes the pipeline resumable -- the orchestrator's "has this stage
// already run" check is just "does this file exist and parse".
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store is keyed artifact persistence on a local filesystem tree rooted at
// Root. It has no in-memory state; every operation touches disk directly, so
// a Store value is safe to share across goroutines without additional
// synchronization -- concurrent writes to distinct names are independent,
// and concurrent writes to the same name are serialized by the atomicity of
// the underlying rename.
type Store struct {
	// Root is the output_path directory (e.g. ".engines").
	Root string

	logger *slog.Logger
}

// New creates a Store rooted at root. The directory is not created eagerly;
// Put creates parent directories on demand.
func New(root string) *Store {
	return &Store{
		Root:   root,
		logger: slog.Default().With("component", "store"),
	}
}

// trajectoryDir returns <root>/trajectories/<problemID>.
func (s *Store) trajectoryDir(problemID string) string {
	return filepath.Join(s.Root, "trajectories", problemID)
}

// artifactDir returns <root>/<subtree>/<problemID>, used for dockerfiles/
// and scripts/ which live outside the trajectories/ subtree.
func (s *Store) artifactDir(subtree, problemID string) string {
	return filepath.Join(s.Root, subtree, problemID)
}

// Put writes bytes to <root>/trajectories/<problemID>/<name> via a temporary
// sibling file and an atomic rename, so concurrent readers never observe a
// torn write. It returns an error if the parent directory cannot be created
// or the rename fails.
func (s *Store) Put(problemID, name string, data []byte) error {
	return atomicWrite(s.trajectoryDir(problemID), name, data)
}

// PutArtifact writes bytes to <root>/<subtree>/<problemID>/<name>, used for
// the dockerfiles/ and scripts/ subtrees that generation produces.
func (s *Store) PutArtifact(problemID, subtree, name string, data []byte) error {
	return atomicWrite(s.artifactDir(subtree, problemID), name, data)
}

// ArtifactWrite is one file of a PutArtifactGroup call: subtree and name
// identify the destination the same way PutArtifact's arguments do. Mode,
// when nonzero, is applied to the file before it is renamed into place --
// used to mark generated shell scripts executable.
type ArtifactWrite struct {
	Subtree string
	Name    string
	Data    []byte
	Mode    os.FileMode
}

// PutArtifactGroup writes several artifacts for one problem so that either
// all of them land on disk or none do. This is what the Generation stage
// uses to persist its Containerfile, lint script, and test script together:
// a reader checking for one of the three should never observe it without
// the other two.
//
// Every file is staged as a temp sibling and fsynced before any rename
// happens; only once every temp write has succeeded does the group proceed
// to rename each file into place. A failure during staging leaves the
// destination directories untouched. A rename failure after staging (rare:
// same filesystem, same directory, already-synced file) can still leave a
// partial group on disk; this is the accepted residual risk on a single
// local filesystem without a transactional rename-many primitive.
func (s *Store) PutArtifactGroup(problemID string, writes []ArtifactWrite) error {
	type staged struct {
		tmpPath string
		final   string
	}

	var pending []staged
	cleanup := func() {
		for _, p := range pending {
			os.Remove(p.tmpPath)
		}
	}

	for _, w := range writes {
		dir := s.artifactDir(w.Subtree, problemID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			cleanup()
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}

		tmp, err := os.CreateTemp(dir, "."+w.Name+".tmp-*")
		if err != nil {
			cleanup()
			return fmt.Errorf("creating temp file in %s: %w", dir, err)
		}
		tmpPath := tmp.Name()

		if _, err := tmp.Write(w.Data); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			cleanup()
			return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
		}
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			cleanup()
			return fmt.Errorf("syncing temp file %s: %w", tmpPath, err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpPath)
			cleanup()
			return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
		}
		if w.Mode != 0 {
			if err := os.Chmod(tmpPath, w.Mode); err != nil {
				os.Remove(tmpPath)
				cleanup()
				return fmt.Errorf("chmod temp file %s: %w", tmpPath, err)
			}
		}

		pending = append(pending, staged{tmpPath: tmpPath, final: filepath.Join(dir, w.Name)})
	}

	for _, p := range pending {
		if err := os.Rename(p.tmpPath, p.final); err != nil {
			return fmt.Errorf("renaming %s to %s: %w", p.tmpPath, p.final, err)
		}
	}

	return nil
}

// ArtifactPath returns the on-disk path of <root>/<subtree>/<problemID>/<name>
// without reading it, for callers (the Container Execution Stage) that need
// to hand the path to an external process rather than its contents.
func (s *Store) ArtifactPath(problemID, subtree, name string) string {
	return filepath.Join(s.artifactDir(subtree, problemID), name)
}

// Get returns the current contents of <root>/trajectories/<problemID>/<name>,
// or (nil, false) if the file does not exist.
func (s *Store) Get(problemID, name string) ([]byte, bool, error) {
	path := filepath.Join(s.trajectoryDir(problemID), name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	return data, true, nil
}

// GetArtifact is the PutArtifact counterpart of Get.
func (s *Store) GetArtifact(problemID, subtree, name string) ([]byte, bool, error) {
	path := filepath.Join(s.artifactDir(subtree, problemID), name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	return data, true, nil
}

// Exists reports whether <root>/trajectories/<problemID>/<name> is present.
func (s *Store) Exists(problemID, name string) bool {
	path := filepath.Join(s.trajectoryDir(problemID), name)
	_, err := os.Stat(path)
	return err == nil
}

// atomicWrite writes data to <dir>/<name> by creating a temporary file in
// dir, writing and fsyncing it, then renaming it into place. A rename within
// the same directory is atomic on every filesystem this tool targets, so
// readers of <dir>/<name> never see a partially written file.
func atomicWrite(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, final, err)
	}

	return nil
}

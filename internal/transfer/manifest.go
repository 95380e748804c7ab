package transfer

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/fleetops/fleetctl/internal/errors"
)

// Entry is one (source path -> destination path) pair in a manifest.
// RemotePath is relative to the session workspace and always /-separated.
type Entry struct {
	LocalPath  string
	RemotePath string
	Mode       uint32
}

// Manifest is the set of files a remote script needs.
// Built per session; discarded after use.
type Manifest struct {
	Entries []Entry
}

// BuildManifest collects the shared support-library directory plus the target
// script. Library files land under lib/ in the workspace; the script lands at
// the workspace root with the execute bit set.
func BuildManifest(libDir, scriptPath string) (*Manifest, error) {
	m := &Manifest{}

	if libDir != "" {
		info, err := os.Stat(libDir)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Support library directory not found: %s", libDir),
				"Check remote.lib_dir in the config")
		}
		if !info.IsDir() {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("remote.lib_dir is not a directory: %s", libDir),
				"Point remote.lib_dir at the shared script library")
		}

		err = filepath.WalkDir(libDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(libDir, p)
			if err != nil {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			m.Entries = append(m.Entries, Entry{
				LocalPath:  p,
				RemotePath: path.Join("lib", filepath.ToSlash(rel)),
				Mode:       fileMode(info.Mode()),
			})
			return nil
		})
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Failed to walk library directory %s", libDir),
				"Check directory permissions")
		}
	}

	if _, err := os.Stat(scriptPath); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Script not found: %s", scriptPath),
			"Check the script path")
	}
	m.Entries = append(m.Entries, Entry{
		LocalPath:  scriptPath,
		RemotePath: filepath.Base(scriptPath),
		Mode:       0755,
	})

	return m, nil
}

// RemotePaths returns the workspace-relative destination paths, in manifest order.
func (m *Manifest) RemotePaths() []string {
	paths := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		paths[i] = e.RemotePath
	}
	return paths
}

// fileMode reduces a local file mode to the permission bits carried remotely,
// preserving the execute bit.
func fileMode(mode fs.FileMode) uint32 {
	if mode&0111 != 0 {
		return 0755
	}
	return 0644
}

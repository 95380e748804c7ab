// Package transfer bundles and copies the file set a remote script needs.
//
// The fast path builds one compressed archive, transfers it once, and
// extracts it remotely. The fallback path (used when the remote has no tar)
// copies every file individually. Both paths leave an identical remote file
// set, and the destination directory is deleted and recreated at the start
// of every push so no stale state survives between sessions.
package transfer

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/util"
	"github.com/fleetops/fleetctl/pkg/sshutil"
	"github.com/klauspost/compress/gzip"
)

// Engine pushes manifests to a remote workspace over a Transport.
type Engine struct {
	transport sshutil.Transport
	log       logger.Logger
}

// NewEngine creates a transfer engine over the given transport.
func NewEngine(t sshutil.Transport, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Noop()
	}
	return &Engine{transport: t, log: log}
}

// Push resets remoteDir and populates it with the manifest's files.
// It prefers the archive fast path and falls back to per-file copies when
// the remote lacks tar.
func (e *Engine) Push(ctx context.Context, m *Manifest, remoteDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// No stale-state reuse: the workspace is rebuilt from scratch every
	// session. A leading ~ stays unquoted for the remote shell to expand.
	quoted := util.ShellQuotePreserveTilde(remoteDir)
	resetCmd := fmt.Sprintf("rm -rf %s && mkdir -p %s %s %s",
		quoted, quoted,
		util.ShellQuotePreserveTilde(path.Join(remoteDir, "lib")),
		util.ShellQuotePreserveTilde(path.Join(remoteDir, "log")))
	if _, stderr, code, err := e.transport.Exec(resetCmd); err != nil {
		return err
	} else if code != 0 {
		return errors.New(errors.ErrExec,
			fmt.Sprintf("Couldn't reset remote workspace %s: %s", remoteDir, stderr),
			"Check the remote work root is writable")
	}

	if e.remoteHasTar() {
		e.log.Debug("pushing %d files to %s via archive", len(m.Entries), remoteDir)
		return e.pushArchive(ctx, m, remoteDir)
	}

	e.log.Debug("remote has no tar, pushing %d files to %s individually", len(m.Entries), remoteDir)
	return e.pushFiles(ctx, m, remoteDir)
}

// remoteHasTar probes for tar on the remote.
func (e *Engine) remoteHasTar() bool {
	_, _, code, err := e.transport.Exec("command -v tar >/dev/null 2>&1")
	return err == nil && code == 0
}

// pushArchive streams one gzip'd tar of the whole manifest into a remote
// extraction, transferring everything in a single round trip.
func (e *Engine) pushArchive(ctx context.Context, m *Manifest, remoteDir string) error {
	pr, pw := io.Pipe()

	go func() {
		gz := gzip.NewWriter(pw)
		tw := tar.NewWriter(gz)

		writeErr := func() error {
			for _, entry := range m.Entries {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := writeArchiveEntry(tw, entry); err != nil {
					return err
				}
			}
			if err := tw.Close(); err != nil {
				return err
			}
			return gz.Close()
		}()

		pw.CloseWithError(writeErr)
	}()

	extractCmd := "tar -xzf - -C " + util.ShellQuotePreserveTilde(remoteDir)
	if err := e.transport.CopyToStream(pr, extractCmd); err != nil {
		pr.CloseWithError(err)
		return err
	}
	return nil
}

// writeArchiveEntry appends one manifest entry to the tar stream.
func writeArchiveEntry(tw *tar.Writer, entry Entry) error {
	f, err := os.Open(entry.LocalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr := &tar.Header{
		Name:    entry.RemotePath,
		Mode:    int64(entry.Mode),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// pushFiles copies every manifest entry individually: the library directory
// recursively, then the script. Two round trips per file instead of one total.
func (e *Engine) pushFiles(ctx context.Context, m *Manifest, remoteDir string) error {
	madeDirs := map[string]bool{".": true, "lib": true, "log": true}

	for _, entry := range m.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := path.Dir(entry.RemotePath)
		if !madeDirs[dir] {
			mkdir := "mkdir -p " + util.ShellQuotePreserveTilde(path.Join(remoteDir, dir))
			if _, stderr, code, err := e.transport.Exec(mkdir); err != nil {
				return err
			} else if code != 0 {
				return errors.New(errors.ErrExec,
					fmt.Sprintf("Couldn't create remote directory %s: %s", dir, stderr),
					"Check remote permissions")
			}
			madeDirs[dir] = true
		}

		f, err := os.Open(entry.LocalPath)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Can't read local file %s", entry.LocalPath),
				"Check the file exists and is readable")
		}
		err = e.transport.CopyTo(f, path.Join(remoteDir, entry.RemotePath), entry.Mode)
		f.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

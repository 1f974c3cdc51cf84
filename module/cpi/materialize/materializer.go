// Package materialize writes downloaded artifacts below the output directory,
// either as the raw archive or as an extracted file tree.
package materialize

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/rs/zerolog/log"
	"github.com/zhyee/zipstream"

	"github.com/harness/cpi-sync/util/common/errors"
	"github.com/harness/cpi-sync/util/common/fileutil"
)

// ParametersSuffix marks the entries that comment stripping applies to
const ParametersSuffix = "parameters.prop"

var zipMagic = []byte("PK")

// Options controls how artifacts are written
type Options struct {
	OutputDir     string
	Extract       bool
	StripComments bool
}

// Materializer writes artifacts of many packages concurrently. Each package
// owns the disjoint directory <OutputDir>/<packageID>.
type Materializer struct {
	opts Options
}

func New(opts Options) *Materializer {
	return &Materializer{opts: opts}
}

// PackageDir returns the directory of a package below the output directory
func (m *Materializer) PackageDir(packageID string) (string, error) {
	if err := checkName(packageID); err != nil {
		return "", err
	}
	return filepath.Join(m.opts.OutputDir, packageID), nil
}

// Reset wipes and recreates the directory of a package
func (m *Materializer) Reset(packageID string) (string, error) {
	dir, err := m.PackageDir(packageID)
	if err != nil {
		return "", err
	}
	if err := fileutil.ResetDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Materialize writes payload for one artifact and returns the path of the
// written zip file or extraction directory.
func (m *Materializer) Materialize(packageID, artifactID string, payload []byte) (string, error) {
	pkgDir, err := m.PackageDir(packageID)
	if err != nil {
		return "", err
	}
	if err := checkName(artifactID); err != nil {
		return "", err
	}

	if !m.opts.Extract {
		target := filepath.Join(pkgDir, artifactID+".zip")
		if err := fileutil.WriteFile(target, payload); err != nil {
			return "", err
		}
		return target, nil
	}

	target := filepath.Join(pkgDir, artifactID)
	if err := m.extract(target, artifactID, payload); err != nil {
		return "", err
	}
	return target, nil
}

func (m *Materializer) extract(root, artifactID string, payload []byte) error {
	startTime := time.Now()
	logger := log.With().Str("artifact", artifactID).Str("target", root).Logger()

	if !bytes.HasPrefix(payload, zipMagic) {
		return errors.NewArchiveError(artifactID, "", fmt.Errorf("payload is not a zip archive"))
	}
	if err := fileutil.EnsureDir(root); err != nil {
		return err
	}

	entries, err := m.extractStream(root, artifactID, payload)
	if err != nil && !errors.Is(err, errors.ErrUnsafePath) {
		// local headers are not enough for every archive, e.g. stored entries
		// followed by a data descriptor; the central directory always is
		logger.Debug().Err(err).Msg("Streaming extraction failed, reading central directory")
		entries, err = m.extractDirectory(root, artifactID, payload)
	}
	if err != nil {
		return err
	}

	logger.Debug().Int("entries", entries).Dur("duration", time.Since(startTime)).Msg("Extracted artifact")
	return nil
}

func (m *Materializer) extractStream(root, artifactID string, payload []byte) (int, error) {
	zr := zipstream.NewReader(bytes.NewReader(payload))
	entries := 0
	for {
		entry, err := zr.GetNextEntry()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, errors.NewArchiveError(artifactID, "", err)
		}

		written, err := m.extractEntry(root, artifactID, entry.Name, func() (io.ReadCloser, error) {
			return entry.Open()
		})
		if err != nil {
			return entries, err
		}
		if written {
			entries++
		}
	}
}

func (m *Materializer) extractDirectory(root, artifactID string, payload []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return 0, errors.NewArchiveError(artifactID, "", err)
	}
	entries := 0
	for _, f := range zr.File {
		written, err := m.extractEntry(root, artifactID, f.Name, f.Open)
		if err != nil {
			return entries, err
		}
		if written {
			entries++
		}
	}
	return entries, nil
}

// extractEntry writes one archive entry below root and reports whether a
// file was written.
func (m *Materializer) extractEntry(root, artifactID, entryName string, open func() (io.ReadCloser, error)) (
	bool, error,
) {
	name, err := cleanEntryName(entryName)
	if err != nil {
		return false, errors.NewArchiveError(artifactID, entryName, err)
	}
	target, err := securejoin.SecureJoin(root, name)
	if err != nil {
		return false, errors.NewArchiveError(artifactID, entryName, err)
	}

	if strings.HasSuffix(name, "/") {
		return false, fileutil.EnsureDir(target)
	}
	if err := m.writeEntry(target, artifactID, name, open); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Materializer) writeEntry(target, artifactID, name string, open func() (io.ReadCloser, error)) error {
	rc, err := open()
	if err != nil {
		return errors.NewArchiveError(artifactID, name, err)
	}
	defer rc.Close()

	strip := m.opts.StripComments && strings.HasSuffix(name, ParametersSuffix)
	return fileutil.WriteFileFunc(target, func(w io.Writer) error {
		var err error
		if strip {
			err = StripComments(rc, w)
		} else {
			_, err = io.Copy(w, rc)
		}
		if err != nil {
			return errors.NewArchiveError(artifactID, name, err)
		}
		return nil
	})
}

// StripComments copies r to w without the lines starting with '#'. Every
// remaining line is terminated with a single "\n"; "\r\n" endings are
// normalized.
func StripComments(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if !strings.HasPrefix(line, "#") {
				if _, werr := io.WriteString(w, line+"\n"); werr != nil {
					return werr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// cleanEntryName converts an archive entry name to a slash separated path
// relative to the extraction root. Absolute names, drive letters and ".."
// segments are rejected.
func cleanEntryName(name string) (string, error) {
	clean := strings.ReplaceAll(name, "\\", "/")
	if clean == "" {
		return "", fmt.Errorf("%w: empty entry name", errors.ErrUnsafePath)
	}
	if strings.HasPrefix(clean, "/") || (len(clean) >= 2 && clean[1] == ':') {
		return "", fmt.Errorf("%w: absolute entry name", errors.ErrUnsafePath)
	}
	for _, segment := range strings.Split(clean, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: parent directory segment", errors.ErrUnsafePath)
		}
	}
	return clean, nil
}

// checkName rejects package and artifact ids that are not a single path element
func checkName(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\") || strings.ContainsRune(id, 0) {
		return errors.NewFileError(id, "join", fmt.Errorf("%w: %q is not a valid directory name", errors.ErrUnsafePath, id))
	}
	return nil
}

// Prepare creates the output root if it is missing
func (m *Materializer) Prepare() error {
	if m.opts.OutputDir == "" {
		return errors.NewValidationError("packages.local_dir", "output directory cannot be empty")
	}
	return fileutil.EnsureDir(m.opts.OutputDir)
}

package deps

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

var (
	magicZip   = []byte("PK\x03\x04")
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicXZ    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// ErrToolNotInArchive is returned when a required executable is missing
// from a downloaded archive.
var ErrToolNotInArchive = errors.New("executable not found in archive")

// extractTools copies every archive entry whose base name is in want into
// destDir with mode 0755 and returns the names written. The archive format is
// detected from its leading bytes: zip, or a tar stream that is gzip, bzip2
// or xz compressed.
func extractTools(archivePath, destDir string, want []string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peeking header: %w", err)
	}

	wanted := make(map[string]bool, len(want))
	for _, w := range want {
		wanted[w] = true
	}

	if bytes.HasPrefix(header, magicZip) {
		return extractZip(archivePath, destDir, wanted)
	}

	var stream io.Reader
	switch {
	case bytes.HasPrefix(header, magicGzip):
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		stream = gzr
	case bytes.HasPrefix(header, magicBzip2):
		bzr, err := bzip2.NewReader(br, nil)
		if err != nil {
			return nil, fmt.Errorf("creating bzip2 reader: %w", err)
		}
		defer bzr.Close()
		stream = bzr
	case bytes.HasPrefix(header, magicXZ):
		xzr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		stream = xzr
	default:
		return nil, errors.New("unrecognised archive format")
	}

	return extractTar(tar.NewReader(stream), destDir, wanted)
}

func extractTar(tr *tar.Reader, destDir string, wanted map[string]bool) ([]string, error) {
	var written []string
	for len(written) < len(wanted) {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, fmt.Errorf("reading tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Base(hdr.Name)
		if !wanted[name] || slices.Contains(written, name) {
			continue
		}
		if err := writeExecutable(filepath.Join(destDir, name), tr); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

func extractZip(archivePath, destDir string, wanted map[string]bool) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("reading zip: %w", err)
	}
	defer zr.Close()

	var written []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := path.Base(entry.Name)
		if !wanted[name] || slices.Contains(written, name) {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return written, fmt.Errorf("opening zip entry %s: %w", entry.Name, err)
		}
		err = writeExecutable(filepath.Join(destDir, name), rc)
		rc.Close()
		if err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

// writeExecutable writes r to target through a temporary file in the same
// directory so a half-written binary is never left under the final name.
func writeExecutable(target string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions on %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("installing %s: %w", target, err)
	}
	return nil
}

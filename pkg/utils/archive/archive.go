// Package archive packages release binaries into tar.gz or zip archives and
// computes checksums for them.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Entry is one file to include in an archive
type Entry struct {
	Source string      // Path of the file on disk
	Name   string      // Name inside the archive
	Mode   fs.FileMode // Mode recorded in the archive
}

// Create writes the entries into an archive at path. The format is chosen by
// the path suffix: ".zip" produces a zip archive, everything else tar.gz.
func Create(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create archive file", goerr.V("path", path))
	}
	defer f.Close()

	if strings.HasSuffix(path, ".zip") {
		if err := writeZip(f, entries); err != nil {
			return err
		}
	} else {
		if err := writeTarGz(f, entries); err != nil {
			return err
		}
	}

	return f.Close()
}

func writeTarGz(w io.Writer, entries []Entry) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	for _, e := range entries {
		src, err := os.Open(e.Source)
		if err != nil {
			return goerr.Wrap(err, "failed to open archive entry", goerr.V("source", e.Source))
		}

		info, err := src.Stat()
		if err != nil {
			src.Close()
			return goerr.Wrap(err, "failed to stat archive entry", goerr.V("source", e.Source))
		}

		hdr := &tar.Header{
			Name: e.Name,
			Mode: int64(e.Mode),
			Size: info.Size(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			src.Close()
			return goerr.Wrap(err, "failed to write tar header", goerr.V("name", e.Name))
		}
		if _, err := io.Copy(tw, src); err != nil {
			src.Close()
			return goerr.Wrap(err, "failed to write tar entry", goerr.V("name", e.Name))
		}
		src.Close()
	}

	if err := tw.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize tar archive")
	}
	if err := gw.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize gzip stream")
	}
	return nil
}

func writeZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)

	for _, e := range entries {
		src, err := os.Open(e.Source)
		if err != nil {
			return goerr.Wrap(err, "failed to open archive entry", goerr.V("source", e.Source))
		}

		hdr := &zip.FileHeader{
			Name:   e.Name,
			Method: zip.Deflate,
		}
		hdr.SetMode(e.Mode)

		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			src.Close()
			return goerr.Wrap(err, "failed to create zip entry", goerr.V("name", e.Name))
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return goerr.Wrap(err, "failed to write zip entry", goerr.V("name", e.Name))
		}
		src.Close()
	}

	if err := zw.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize zip archive")
	}
	return nil
}

// SHA256 returns the hex encoded SHA-256 digest of the file at path
func SHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open file for checksum", goerr.V("path", path))
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", goerr.Wrap(err, "failed to hash file", goerr.V("path", path))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksums writes a checksums file in the conventional
// "<sha256>  <name>" format, sorted by name.
func WriteChecksums(path string, sums map[string]string) error {
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s  %s\n", sums[name], name)
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return goerr.Wrap(err, "failed to write checksums file", goerr.V("path", path))
	}
	return nil
}

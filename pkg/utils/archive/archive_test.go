package archive_test

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/RukuLab/ruku/pkg/utils/archive"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCreate_TarGz(t *testing.T) {
	dir := t.TempDir()
	binary := writeTestFile(t, dir, "ruku", "#!/bin/sh\necho hello\n")
	license := writeTestFile(t, dir, "LICENSE", "MIT License")

	path := filepath.Join(dir, "ruku_v1.0.0_linux_amd64.tar.gz")
	err := archive.Create(path, []archive.Entry{
		{Source: binary, Name: "ruku", Mode: 0755},
		{Source: license, Name: "LICENSE", Mode: 0644},
	})
	gt.NoError(t, err)

	f, err := os.Open(path)
	gt.NoError(t, err)
	defer f.Close()

	gr, err := gzip.NewReader(f)
	gt.NoError(t, err)
	tr := tar.NewReader(gr)

	found := map[string]string{}
	modes := map[string]int64{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		gt.NoError(t, err)

		content, err := io.ReadAll(tr)
		gt.NoError(t, err)
		found[hdr.Name] = string(content)
		modes[hdr.Name] = hdr.Mode
	}

	gt.Value(t, found["ruku"]).Equal("#!/bin/sh\necho hello\n")
	gt.Value(t, found["LICENSE"]).Equal("MIT License")
	gt.Number(t, modes["ruku"]).Equal(0755)
	gt.Number(t, modes["LICENSE"]).Equal(0644)
}

func TestCreate_Zip(t *testing.T) {
	dir := t.TempDir()
	binary := writeTestFile(t, dir, "ruku.exe", "MZ fake windows binary")

	path := filepath.Join(dir, "ruku_v1.0.0_windows_amd64.zip")
	err := archive.Create(path, []archive.Entry{
		{Source: binary, Name: "ruku.exe", Mode: 0755},
	})
	gt.NoError(t, err)

	zr, err := zip.OpenReader(path)
	gt.NoError(t, err)
	defer zr.Close()

	gt.Number(t, len(zr.File)).Equal(1)
	entry := zr.File[0]
	gt.Value(t, entry.Name).Equal("ruku.exe")

	rc, err := entry.Open()
	gt.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	gt.NoError(t, err)
	gt.Value(t, string(content)).Equal("MZ fake windows binary")
}

func TestCreate_MissingSource(t *testing.T) {
	dir := t.TempDir()

	err := archive.Create(filepath.Join(dir, "out.tar.gz"), []archive.Entry{
		{Source: filepath.Join(dir, "nonexistent"), Name: "x", Mode: 0644},
	})
	gt.Error(t, err)
}

func TestSHA256(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "data", "hello world")

	sum, err := archive.SHA256(path)
	gt.NoError(t, err)

	expected := sha256.Sum256([]byte("hello world"))
	gt.Value(t, sum).Equal(hex.EncodeToString(expected[:]))
}

func TestWriteChecksums(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checksums.txt")

	err := archive.WriteChecksums(path, map[string]string{
		"ruku_v1.0.0_linux_amd64.tar.gz":  "bbbb",
		"ruku_v1.0.0_darwin_arm64.tar.gz": "aaaa",
	})
	gt.NoError(t, err)

	content, err := os.ReadFile(path)
	gt.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	gt.Number(t, len(lines)).Equal(2)

	// Sorted by archive name, two spaces between digest and name
	gt.Value(t, lines[0]).Equal("aaaa  ruku_v1.0.0_darwin_arm64.tar.gz")
	gt.Value(t, lines[1]).Equal("bbbb  ruku_v1.0.0_linux_amd64.tar.gz")
}

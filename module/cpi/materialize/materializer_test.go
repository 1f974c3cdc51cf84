package materialize

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harness/cpi-sync/util/common/errors"
)

type zipEntry struct {
	name    string
	content string
	stored  bool
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := zip.Deflate
		if e.stored {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		require.NoError(t, err)
		if e.content != "" {
			_, err = w.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMaterialize_RawZipIsIdempotent(t *testing.T) {
	out := t.TempDir()
	m := New(Options{OutputDir: out})
	payload := buildZip(t, zipEntry{name: "META-INF/MANIFEST.MF", content: "Manifest-Version: 1.0\n"})

	first, err := m.Materialize("PkgA", "Flow1", payload)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "PkgA", "Flow1.zip"), first)
	firstContent := readFile(t, first)

	second, err := m.Materialize("PkgA", "Flow1", payload)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, firstContent, readFile(t, second))
	assert.Equal(t, payload, []byte(readFile(t, second)))
}

func TestMaterialize_Extract(t *testing.T) {
	params := "#skip\nkeep=1\n#skip2\nkeep=2"
	archive := func(stored bool) []byte {
		return buildZip(t,
			zipEntry{name: "META-INF/"},
			zipEntry{name: "META-INF/MANIFEST.MF", content: "Manifest-Version: 1.0\n", stored: stored},
			zipEntry{name: "src/main/resources/parameters.prop", content: params, stored: stored},
			zipEntry{name: "src/main/resources/script.groovy", content: "#!/usr/bin/env groovy\n", stored: stored},
		)
	}

	tests := []struct {
		name       string
		stored     bool
		strip      bool
		wantParams string
	}{
		{name: "comment removal disabled", strip: false, wantParams: params},
		{name: "comment removal enabled", strip: true, wantParams: "keep=1\nkeep=2\n"},
		{name: "stored entries", stored: true, strip: false, wantParams: params},
		{name: "stored entries with comment removal", stored: true, strip: true, wantParams: "keep=1\nkeep=2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := t.TempDir()
			m := New(Options{OutputDir: out, Extract: true, StripComments: tt.strip})

			root, err := m.Materialize("PkgA", "Flow1", archive(tt.stored))
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(out, "PkgA", "Flow1"), root)

			assert.DirExists(t, filepath.Join(root, "META-INF"))
			assert.Equal(t, "Manifest-Version: 1.0\n", readFile(t, filepath.Join(root, "META-INF", "MANIFEST.MF")))
			assert.Equal(t, tt.wantParams, readFile(t, filepath.Join(root, "src", "main", "resources", "parameters.prop")))
			assert.Equal(t, "#!/usr/bin/env groovy\n",
				readFile(t, filepath.Join(root, "src", "main", "resources", "script.groovy")),
				"only parameter files are stripped")
		})
	}
}

func TestMaterialize_RejectsUnsafeEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{name: "parent traversal", entry: "../../escape.txt"},
		{name: "nested traversal", entry: "src/../../../escape.txt"},
		{name: "absolute path", entry: "/escape.txt"},
		{name: "windows traversal", entry: "..\\..\\escape.txt"},
		{name: "drive letter", entry: "C:/escape.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			out := filepath.Join(base, "out")
			m := New(Options{OutputDir: out, Extract: true})

			payload := buildZip(t, zipEntry{name: tt.entry, content: "pwned"})
			_, err := m.Materialize("PkgA", "Flow1", payload)

			var archiveErr *errors.ArchiveError
			require.True(t, errors.As(err, &archiveErr), "expected ArchiveError, got %v", err)
			assert.True(t, errors.Is(err, errors.ErrUnsafePath))

			err = filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
				require.NoError(t, err)
				if !info.IsDir() {
					t.Errorf("unexpected file written: %s", path)
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestMaterialize_InvalidPayload(t *testing.T) {
	m := New(Options{OutputDir: t.TempDir(), Extract: true})
	_, err := m.Materialize("PkgA", "Flow1", []byte("<html>error page</html>"))

	var archiveErr *errors.ArchiveError
	assert.True(t, errors.As(err, &archiveErr), "expected ArchiveError, got %v", err)
}

func TestMaterialize_InvalidIDs(t *testing.T) {
	m := New(Options{OutputDir: t.TempDir()})
	for _, id := range []string{"", ".", "..", "a/b", "a\\b"} {
		_, err := m.Materialize(id, "Flow1", []byte("PK"))
		assert.True(t, errors.Is(err, errors.ErrUnsafePath), "package id %q", id)

		_, err = m.Materialize("PkgA", id, []byte("PK"))
		assert.True(t, errors.Is(err, errors.ErrUnsafePath), "artifact id %q", id)
	}
}

func TestReset(t *testing.T) {
	out := t.TempDir()
	m := New(Options{OutputDir: out})
	stale := filepath.Join(out, "PkgA", "Old.zip")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	dir, err := m.Reset("PkgA")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "PkgA"), dir)
	assert.NoFileExists(t, stale)
	assert.DirExists(t, dir)
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "example", in: "#skip\nkeep=1\n#skip2\nkeep=2", want: "keep=1\nkeep=2\n"},
		{name: "crlf", in: "#c\r\na=1\r\nb=2\r\n", want: "a=1\nb=2\n"},
		{name: "empty lines kept", in: "a=1\n\nb=2\n", want: "a=1\n\nb=2\n"},
		{name: "indented hash kept", in: " #not a comment\n", want: " #not a comment\n"},
		{name: "only comments", in: "#a\n#b", want: ""},
		{name: "empty", in: "", want: ""},
		{name: "long line", in: strings.Repeat("x", 200000), want: strings.Repeat("x", 200000) + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, StripComments(strings.NewReader(tt.in), &out))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestCleanEntryName(t *testing.T) {
	got, err := cleanEntryName("src\\main\\parameters.prop")
	require.NoError(t, err)
	assert.Equal(t, "src/main/parameters.prop", got)

	got, err = cleanEntryName("a/..b/c")
	require.NoError(t, err)
	assert.Equal(t, "a/..b/c", got)
}

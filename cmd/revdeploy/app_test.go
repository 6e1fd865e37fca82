package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/revdeploy/internal/revision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out

	base := []string{"revdeploy", "--driver", "local", "--local-root", root, "--key", "live.zip", "--log-level", "error"}
	err := app.Run(append(base, args...))
	return out.String(), err
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadListActivate(t *testing.T) {
	chdir(t, t.TempDir())
	root := t.TempDir()
	artifacts := t.TempDir()

	out, err := runApp(t, root, "upload", "--revision", "abc123", "--file", writeArtifact(t, artifacts, "a.zip", "first"))
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded live-abc123.zip")

	_, err = runApp(t, root, "upload", "-r", "def456", "-f", writeArtifact(t, artifacts, "b.zip", "second"))
	require.NoError(t, err)

	out, err = runApp(t, root, "activate", "--revision", "abc123")
	require.NoError(t, err)
	assert.Contains(t, out, "live-abc123.zip => live.zip")

	out, err = runApp(t, root, "revisions", "--json")
	require.NoError(t, err)

	var records []revision.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)

	abc, ok := revision.Find(records, "abc123")
	require.True(t, ok)
	assert.True(t, abc.Active)
	def, ok := revision.Find(records, "def456")
	require.True(t, ok)
	assert.False(t, def.Active)

	out, err = runApp(t, root, "revisions")
	require.NoError(t, err)
	assert.Contains(t, out, "REVISION")
	assert.Contains(t, out, "abc123")
}

func TestActivate_UnknownRevision(t *testing.T) {
	chdir(t, t.TempDir())
	root := t.TempDir()

	_, err := runApp(t, root, "activate", "--revision", "missing", "--validate", "catalog")
	require.Error(t, err)
	assert.ErrorIs(t, err, revision.ErrRevisionNotFound)

	_, statErr := os.Stat(filepath.Join(root, "live.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestActivate_RequiresRevision(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REVISION_KEY", "")

	_, err := runApp(t, t.TempDir(), "activate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revision is required")
}

func TestUpload_RefusesDuplicate(t *testing.T) {
	chdir(t, t.TempDir())
	root := t.TempDir()
	path := writeArtifact(t, t.TempDir(), "a.zip", "first")

	_, err := runApp(t, root, "upload", "-r", "abc123", "-f", path)
	require.NoError(t, err)

	_, err = runApp(t, root, "upload", "-r", "abc123", "-f", path)
	assert.ErrorIs(t, err, revision.ErrRevisionExists)

	_, err = runApp(t, root, "upload", "-r", "abc123", "-f", path, "--overwrite")
	assert.NoError(t, err)
}

func TestRevisions_Empty(t *testing.T) {
	chdir(t, t.TempDir())

	out, err := runApp(t, t.TempDir(), "revisions")
	require.NoError(t, err)
	assert.Contains(t, out, "no revisions found")
}

func TestHistory_JournalDisabled(t *testing.T) {
	chdir(t, t.TempDir())

	out, err := runApp(t, t.TempDir(), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no activations recorded")
}

func TestInvalidConfiguration(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REVISION_ACTIVE_KEY", "")

	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run([]string{"revdeploy", "--driver", "minio", "revisions"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistStageAndArchive(t *testing.T) {
	srcDir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("a"), 0o644))

	stageDir := t.TempDir()
	d := &DistDriver{Archiver: "tar.gz", Checksum: "sha256"}

	sources := []DistSource{{AbsPath: filepath.Join(srcDir, "a.txt"), RelPath: "a.txt"}}
	assert.NoError(t, d.Stage(sources, stageDir))

	staged, err := os.ReadFile(filepath.Join(stageDir, "a.txt"))
	assert.NoError(t, err)
	assert.Equal(t, "a", string(staged))

	archivePath := filepath.Join(t.TempDir(), "dist.tar.gz")
	out, err := d.Archive(stageDir, archivePath)
	assert.NoError(t, err)
	assert.Equal(t, archivePath, out)

	info, err := os.Stat(archivePath)
	assert.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	sumPath, err := d.ChecksumFile(archivePath)
	assert.NoError(t, err)
	assert.FileExists(t, sumPath)
}

func TestDistArchiveNoneReturnsStageDir(t *testing.T) {
	d := &DistDriver{}
	stageDir := t.TempDir()
	out, err := d.Archive(stageDir, filepath.Join(stageDir, "ignored.tar.gz"))
	assert.NoError(t, err)
	assert.Equal(t, stageDir, out)
}

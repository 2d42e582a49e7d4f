package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nimbuild/nimbuild/pkg/config"
	"github.com/nimbuild/nimbuild/pkg/diag"
	"github.com/stretchr/testify/assert"
)

func testTable(root string) *PolicyTable {
	return NewPolicyTable(config.InstallConfig{
		DirMode: "0755",
		FileMode: "0644",
		Paths: map[string]string{
			"bin": filepath.Join(root, "bin"),
			"lib": filepath.Join(root, "lib"),
		},
	})
}

func TestPolicyTableResolvesRecognizedName(t *testing.T) {
	root := t.TempDir()
	pt := testTable(root)

	p, err := pt.Resolve("bin")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "bin"), p.Dir)
}

func TestPolicyTableRejectsUnrecognizedName(t *testing.T) {
	pt := testTable(t.TempDir())
	_, err := pt.Resolve("frobnicate")
	assert.Error(t, err)
	assert.True(t, diag.HasCode(err, diag.InstallPathUnresolved))
}

func TestPolicyTableRejectsUnconfiguredRecognizedName(t *testing.T) {
	pt := testTable(t.TempDir())
	_, err := pt.Resolve("share")
	assert.Error(t, err)
	assert.True(t, diag.HasCode(err, diag.InstallPathUnresolved))
}

func TestParseSpecSplitsSymbolicAndRest(t *testing.T) {
	sym, rest := ParseSpec("lib/pkgconfig/foo.pc")
	assert.Equal(t, "lib", sym)
	assert.Equal(t, "pkgconfig/foo.pc", rest)

	sym, rest = ParseSpec("bin")
	assert.Equal(t, "bin", sym)
	assert.Equal(t, "", rest)
}

func TestDriverInstallAndUninstallRoundTrip(t *testing.T) {
	root := t.TempDir()
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "hello")
	assert.NoError(t, os.WriteFile(srcPath, []byte("bin"), 0o755))

	pt := testTable(root)
	d := NewDriver(pt)

	installed, err := d.Install(srcPath, "bin", nil)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "bin", "hello"), installed)

	data, err := os.ReadFile(installed)
	assert.NoError(t, err)
	assert.Equal(t, "bin", string(data))

	assert.NoError(t, d.Uninstall("bin", "hello", nil))
	_, err = os.Stat(installed)
	assert.True(t, os.IsNotExist(err))
}

func TestDriverInstallWithAlias(t *testing.T) {
	root := t.TempDir()
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "libfoo.so.1.0")
	assert.NoError(t, os.WriteFile(srcPath, []byte("so"), 0o644))

	pt := testTable(root)
	d := NewDriver(pt)

	installed, err := d.Install(srcPath, "lib", []string{"libfoo.so"})
	assert.NoError(t, err)

	link := filepath.Join(filepath.Dir(installed), "libfoo.so")
	target, err := os.Readlink(link)
	assert.NoError(t, err)
	assert.Equal(t, "libfoo.so.1.0", target)
}

// Package install implements the install/dist drivers (C10): resolving
// a target's symbolic install path into a concrete directory/mode/sudo
// policy, installing and uninstalling files under that policy, and
// staging a dist archive of a project's tagged sources.
package install

import (
	"os"
	"strconv"
	"strings"

	lookup "github.com/mcuadros/go-lookup"
	"github.com/nimbuild/nimbuild/pkg/config"
	"github.com/nimbuild/nimbuild/pkg/diag"
)

// recognizedNames are the symbolic first components §6 names as valid;
// any other name resolves only when config.install.paths has an entry
// for it, and otherwise fails with a request to set config.install.<name>.
var recognizedNames = map[string]bool{
	"bin": true, "sbin": true, "lib": true, "libexec": true,
	"include": true, "share": true, "doc": true, "man": true, "pkgconfig": true,
}

// Policy is the resolved install policy for one symbolic path component:
// its absolute base directory plus mode/sudo/subdir overrides.
type Policy struct {
	Dir     string
	Sudo    string
	DirMode os.FileMode
	Mode    os.FileMode
	Subdirs []string
}

// PolicyTable resolves symbolic install.<name> components to a Policy,
// built from the merged UserConfig.Install settings.
type PolicyTable struct {
	cfg   config.InstallConfig
	raw   map[string]interface{}
	dirMode os.FileMode
	fileMode os.FileMode
}

// NewPolicyTable builds a PolicyTable from cfg, using go-lookup to walk
// cfg.Paths by dotted symbolic name (mirrors the teacher's reflective
// config-merge style, applied here to install-path resolution per §4.10).
func NewPolicyTable(cfg config.InstallConfig) *PolicyTable {
	dirMode := parseModeOr(cfg.DirMode, 0o755)
	fileMode := parseModeOr(cfg.FileMode, 0o644)

	raw := make(map[string]interface{}, len(cfg.Paths))
	for k, v := range cfg.Paths {
		raw[k] = v
	}

	return &PolicyTable{cfg: cfg, raw: raw, dirMode: dirMode, fileMode: fileMode}
}

func parseModeOr(s string, fallback os.FileMode) os.FileMode {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fallback
	}
	return os.FileMode(v)
}

// Resolve looks up the symbolic first component of name, recursively
// following config.install.<name> until an absolute directory is
// obtained (§4.10). A component absent from the config's path table,
// recognized or not, is reported so the caller can ask the user to set
// config.install.<name>.
func (pt *PolicyTable) Resolve(name string) (Policy, error) {
	if _, configured := pt.raw[name]; !recognizedNames[name] && !configured {
		return Policy{}, diag.New(diag.InstallPathUnresolved, "unrecognized install path component %q; set config.install.paths.%s", name, name)
	}

	value, err := lookup.LookupString(pt.raw, name)
	if err != nil || !value.IsValid() {
		return Policy{}, diag.New(diag.InstallPathUnresolved, "no install.%s configured; set config.install.paths.%s", name, name)
	}

	dir := value.Interface().(string)
	seen := map[string]bool{name: true}
	for !strings.HasPrefix(dir, "/") {
		next := strings.SplitN(dir, "/", 2)[0]
		if seen[next] {
			return Policy{}, diag.New(diag.InstallPathUnresolved, "install.%s path resolution cycles through %q", name, next)
		}
		seen[next] = true
		v, err := lookup.LookupString(pt.raw, next)
		if err != nil || !v.IsValid() {
			return Policy{}, diag.New(diag.InstallPathUnresolved, "install.%s resolves to unconfigured %q; set config.install.paths.%s", name, next, next)
		}
		dir = v.Interface().(string)
	}

	return Policy{
		Dir:     dir,
		Sudo:    pt.cfg.Sudo,
		DirMode: pt.dirMode,
		Mode:    pt.fileMode,
	}, nil
}

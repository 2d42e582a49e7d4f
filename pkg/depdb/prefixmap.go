package depdb

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// PrefixMap resolves a relative, auto-generated header path (one the
// compiler reported without an absolute location, meaning it doesn't
// exist yet) to an absolute out-tree path, per §4.9 step 5. It mirrors
// build2's append_prefixes/prefix_map (cxx/compile.cxx): each -I
// directory d that covers a target's own out-base directory contributes
// an entry keyed by the sub-path from d down to that out-base directory
// (e.g. "foo" if the target lives in <d>/foo), with d itself as the
// value. Resolving a header finds the most qualified such key that the
// header's own directory is a sub-path of, then prepends the matching
// raw directory to the header's whole original relative path — it does
// not strip anything from the header path, since the key only locates
// which -I directory the compiler must have found it under.
type PrefixMap struct {
	entries []prefixEntry // sorted longest-key-first for longest-prefix matching
}

type prefixEntry struct {
	key string // out-base's leaf path under dir, "" if out-base == dir
	dir string // the raw -I directory
}

// NewPrefixMap builds a prefix map from a target's own include-path
// options plus its library dependencies', restricted to absolute
// directories under outRoot. outBase is the out-base directory of the
// target the map is being built for (its own OutDir), used to derive
// each entry's key the way append_prefixes derives out_base.leaf(d).
func NewPrefixMap(outRoot, outBase string, includeDirs []string) *PrefixMap {
	pm := &PrefixMap{}
	outRoot = filepath.Clean(outRoot)
	outBase = filepath.Clean(outBase)

	byKey := make(map[string]string)
	var order []string
	for _, raw := range includeDirs {
		d := filepath.Clean(raw)
		if !filepath.IsAbs(d) || !isUnder(outRoot, d) {
			continue
		}
		key, ok := leafUnder(outBase, d)
		if !ok {
			continue
		}
		if _, exists := byKey[key]; !exists {
			order = append(order, key)
		}
		// Last -I option for a given key wins, matching append_prefixes'
		// "overriding dependency prefix" behavior on a duplicate key.
		byKey[key] = d
	}

	for _, key := range order {
		pm.entries = append(pm.entries, prefixEntry{key: key, dir: byKey[key]})
	}
	sort.Slice(pm.entries, func(i, j int) bool { return len(pm.entries[i].key) > len(pm.entries[j].key) })
	return pm
}

func isUnder(root, d string) bool {
	rel, err := filepath.Rel(root, d)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// leafUnder reports whether base is dir or a sub-directory of dir and,
// if so, returns the relative path from dir down to base (empty if
// base == dir). This is out_base.sub(d) ? out_base.leaf(d) : not-found.
func leafUnder(base, dir string) (string, bool) {
	rel, err := filepath.Rel(dir, base)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// Resolve maps a relative header path (e.g. "foo/gen.hxx" or, for a
// multi-component include prefix, "mylib/detail/gen.hxx") to its
// absolute out-tree location: it finds the most qualified registered
// key that header's directory is a sub-path of, then joins that key's
// raw -I directory with the header's whole original relative path.
func (pm *PrefixMap) Resolve(header string) (string, error) {
	headerDir := filepath.Clean(filepath.Dir(header))
	if headerDir == "." {
		headerDir = ""
	}
	for _, e := range pm.entries {
		if subPath(headerDir, e.key) {
			return filepath.Join(e.dir, header), nil
		}
	}
	return "", fmt.Errorf("depdb: unable to map presumably auto-generated header %q to a project", header)
}

// subPath reports whether dir is key or a sub-directory of key. An
// empty key matches every directory, including the empty (top-level)
// one, mirroring dir_path::sub() against an empty prefix.
func subPath(dir, key string) bool {
	if key == "" {
		return true
	}
	return dir == key || strings.HasPrefix(dir, key+string(filepath.Separator))
}

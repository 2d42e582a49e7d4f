package depdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nimbuild/nimbuild/pkg/diag"
	"github.com/stretchr/testify/assert"
)

func TestParseMakeRuleStripsTargetAndSource(t *testing.T) {
	line := `hello.o: hello.cxx /usr/include/stdio.h foo/gen.hxx`
	headers := ParseMakeRule(line, "hello.o:", "hello.cxx")
	assert.Equal(t, []string{"/usr/include/stdio.h", "foo/gen.hxx"}, headers)
}

func TestParseMakeRuleHonorsEscapedSpaces(t *testing.T) {
	line := `hello.o: hello.cxx /usr/local/My\ Headers/gen.hxx`
	headers := ParseMakeRule(line, "hello.o:", "hello.cxx")
	assert.Equal(t, []string{"/usr/local/My Headers/gen.hxx"}, headers)
}

func TestPrefixMapResolvesUnderLongestDir(t *testing.T) {
	// Target's out-base is /proj/out/foo; both /proj/out/foo (key "") and
	// /proj/out (key "foo") cover it, so "foo/gen.hxx" must prefer the
	// more qualified "foo" key and resolve relative to /proj/out.
	pm := NewPrefixMap("/proj/out", "/proj/out/foo", []string{"/proj/out/foo", "/proj/out"})
	got, err := pm.Resolve("foo/gen.hxx")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("/proj/out", "foo/gen.hxx"), got)
}

func TestPrefixMapResolvesMultiComponentPrefix(t *testing.T) {
	// Out-base two levels below the only -I directory produces a
	// multi-component key ("mylib/detail"), the scenario a single-level
	// leaf-segment match can't express.
	pm := NewPrefixMap("/proj/out", "/proj/out/mylib/detail", []string{"/proj/out"})
	got, err := pm.Resolve("mylib/detail/gen.hxx")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("/proj/out", "mylib/detail/gen.hxx"), got)
}

func TestPrefixMapFailsWithNoCoveringDir(t *testing.T) {
	pm := NewPrefixMap("/proj/out", "/proj/out", nil)
	_, err := pm.Resolve("foo/gen.hxx")
	assert.Error(t, err)
}

func TestRecordRoundTripAndStaleness(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.o.d")

	rec := Record{RuleID: NewRuleID(), Checksum: "cc-13.2", Headers: []string{"/a.h", "/b.h"}}
	assert.NoError(t, Write(path, rec))

	got, err := Read(path)
	assert.NoError(t, err)
	assert.Equal(t, rec, got)

	other := Record{RuleID: NewRuleID(), Checksum: "cc-13.2", Headers: rec.Headers}
	assert.True(t, got.Stale(other))

	same := Record{RuleID: got.RuleID, Checksum: got.Checksum, Headers: []string{"/a.h", "/c.h"}}
	assert.False(t, got.Stale(same))
}

func TestReadRejectsUnrecognizedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.d")
	assert.NoError(t, os.WriteFile(path, []byte("not-a-depdb\n"), 0o644))

	_, err := Read(path)
	assert.Error(t, err)
	assert.True(t, diag.HasCode(err, diag.DepdbReadError))
}

// Package cc provides the illustrative C/C++ compile rule (§4.9); there
// is no link rule. A restart loop discovers auto-generated headers from
// the compiler's make-rule output, interns, matches and executes each one
// directly (they are not added to the target's prerequisite list), and
// maintains a per-object depdb sidecar for incremental rebuilds.
package cc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/jesseduffield/kill"
)

// Toolchain is the compiler facade the compile recipe drives. Actually
// spawning a compiler process is the filesystem/process collaborator
// the core leaves external; Toolchain is that seam.
type Toolchain interface {
	// Checksum identifies the compiler build/version, recorded in depdb
	// so a toolchain upgrade forces re-extraction.
	Checksum(ctx context.Context) (string, error)

	// EmitMakeRule invokes the compiler in "-M -MG -MQ" mode against src
	// and returns the single resulting make-rule line.
	EmitMakeRule(ctx context.Context, src string) (string, error)

	// Compile produces obj from src.
	Compile(ctx context.Context, src, obj string, extraFlags []string) error
}

// ExecToolchain drives a real GCC/Clang-class compiler binary.
type ExecToolchain struct {
	Path  string // e.g. "g++", "clang++"
	Flags []string
}

func (e *ExecToolchain) Checksum(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, e.Path, "--version")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("cc: %s --version: %w", e.Path, err)
	}
	return string(out), nil
}

func (e *ExecToolchain) EmitMakeRule(ctx context.Context, src string) (string, error) {
	args := append(append([]string(nil), e.Flags...), "-M", "-MG", "-MQ", "*", src)
	cmd := exec.CommandContext(ctx, e.Path, args...)
	kill.PrepareForChildren(cmd)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Start(); err != nil {
		return "", err
	}
	if err := cmd.Wait(); err != nil {
		kill.Kill(cmd)
		return "", fmt.Errorf("cc: %s -M %s: %w", e.Path, src, err)
	}
	return stdout.String(), nil
}

func (e *ExecToolchain) Compile(ctx context.Context, src, obj string, extraFlags []string) error {
	args := append(append(append([]string(nil), e.Flags...), extraFlags...), "-c", "-o", obj, src)
	cmd := exec.CommandContext(ctx, e.Path, args...)
	kill.PrepareForChildren(cmd)

	if err := cmd.Start(); err != nil {
		return err
	}
	if err := cmd.Wait(); err != nil {
		kill.Kill(cmd)
		return fmt.Errorf("cc: %s -c %s: %w", e.Path, src, err)
	}
	return nil
}

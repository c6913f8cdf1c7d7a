// Package toolchain shells out to the external assembler and linker that
// turn emitted AT&T assembly into a runnable ELF binary. Assembling and
// linking are deliberately out of process: `as` and `gcc` are the only
// trust boundary the compiler crosses.
package toolchain

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// libSearchCandidates lists, in order, the build-tree locations probed for
// libcdd.so before falling back to the system library path. Mirrors the
// driver's "development tree vs. installed" fallback.
var libSearchCandidates = []string{
	".",
	"../build",
	"build",
}

// Result carries one external command's captured output alongside its
// exit status, so a driver can print assembler/linker diagnostics
// verbatim even though the command itself only returns an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Assemble invokes `as` against asmPath, producing an object file at
// objPath. Stdout and stderr are drained concurrently via errgroup so a
// chatty `as` invocation can never deadlock on a full pipe.
func Assemble(asmPath, objPath string) (*Result, error) {
	return run(exec.Command("as", "-o", objPath, asmPath))
}

// Link invokes `gcc -no-pie` to combine objPath with libcdd.so into an
// executable at outPath. It probes libSearchCandidates for a development
// build of libcdd.so before falling back to the system library path,
// exactly as the reference driver's assembleAndLink does.
func Link(objPath, outPath string) (*Result, error) {
	args := []string{"-o", outPath, objPath, "-no-pie"}
	if libDir, ok := findLibDir(); ok {
		args = append(args, "-L"+libDir, "-Wl,-rpath,"+libDir)
	}
	args = append(args, "-lcdd")
	return run(exec.Command("gcc", args...))
}

// AssembleAndLink runs Assemble then Link, deriving the intermediate
// object file's name from asmPath deterministically so repeated runs
// against the same source overwrite rather than accumulate temp files.
func AssembleAndLink(asmPath, outPath string) (*Result, error) {
	objPath := strings.TrimSuffix(asmPath, filepath.Ext(asmPath)) + ".o"
	res, err := Assemble(asmPath, objPath)
	if err != nil {
		return res, fmt.Errorf("assembly error: %w", err)
	}
	res, err = Link(objPath, outPath)
	if err != nil {
		return res, fmt.Errorf("link error: %w", err)
	}
	return res, nil
}

func findLibDir() (string, bool) {
	for _, dir := range libSearchCandidates {
		if info, err := os.Stat(filepath.Join(dir, "libcdd.so")); err == nil && !info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// run executes cmd, draining its stdout and stderr pipes concurrently so
// neither can fill its OS pipe buffer and block the child process before
// it exits.
func run(cmd *exec.Cmd) (*Result, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := stdout.ReadFrom(stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := stderr.ReadFrom(stderrPipe)
		return err
	})
	drainErr := g.Wait()

	waitErr := cmd.Wait()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
	}
	if waitErr != nil {
		return res, fmt.Errorf("%s failed: %w\n%s", filepath.Base(cmd.Path), waitErr, res.Stderr)
	}
	if drainErr != nil {
		return res, fmt.Errorf("failed to read %s output: %w", filepath.Base(cmd.Path), drainErr)
	}
	return res, nil
}

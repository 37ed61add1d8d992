// Package gitops records store changes as git commits.
package gitops

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Author identifies who commits.
type Author struct {
	Name  string
	Email string
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Init initializes a new git repository at dir.
func Init(dir string) error {
	if _, err := git(dir, nil, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(dir string) bool {
	out, err := git(dir, nil, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CommitPaths stages paths (additions, changes and deletions) and commits
// them. Returns the short commit hash, or "" when paths hold no changes.
func CommitPaths(dir, message string, author Author, paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	pathspec := append([]string{"--"}, paths...)

	if _, err := git(dir, nil, append([]string{"add", "-A"}, pathspec...)...); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	// diff --quiet exits 1 when there are staged changes.
	_, err := git(dir, nil, append([]string{"diff", "--cached", "--quiet"}, pathspec...)...)
	if err == nil {
		return "", nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return "", fmt.Errorf("git diff: %w", err)
	}

	env := []string{
		"GIT_COMMITTER_NAME=" + author.Name,
		"GIT_COMMITTER_EMAIL=" + author.Email,
	}
	args := append([]string{"commit", "--quiet", "-m", message, "--author", author.String()}, pathspec...)
	if _, err := git(dir, env, args...); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}

	hash, err := git(dir, nil, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return hash, nil
}

// git runs a git subcommand in dir and returns its trimmed stdout.
func git(dir string, env []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Package imagedeploy builds the web application image from a local build
// context and publishes it to the stack's container registry.
package imagedeploy

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	digest "github.com/opencontainers/go-digest"
)

var (
	// ErrInvalidContext is returned when the build context is missing or has no Dockerfile.
	ErrInvalidContext = errors.New("invalid build context")
	// ErrBuildFailed is returned when the image build fails.
	ErrBuildFailed = errors.New("image build failed")
	// ErrPushRejected is returned when the registry rejects the image.
	ErrPushRejected = errors.New("image push rejected")
	// ErrTagNotFound is returned when the pushed tag cannot be resolved afterwards.
	ErrTagNotFound = errors.New("image tag not found in registry")
)

// ValidateContext checks that dir is a directory containing a Dockerfile.
func ValidateContext(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidContext, dir)
	}
	df, err := os.Stat(filepath.Join(dir, "Dockerfile"))
	if err != nil || df.IsDir() {
		return fmt.Errorf("%w: %s has no Dockerfile", ErrInvalidContext, dir)
	}
	return nil
}

// ContextDigest returns a sha256 digest over every file of the build context
// that .dockerignore does not exclude. The digest covers relative paths and
// contents, so it changes exactly when the image inputs change.
func ContextDigest(dir string) (digest.Digest, error) {
	if err := ValidateContext(dir); err != nil {
		return "", err
	}
	matcher, err := ignoreMatcher(dir)
	if err != nil {
		return "", err
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		ignored, err := matcher.MatchesOrParentMatches(rel)
		if err != nil {
			return err
		}
		if ignored {
			// Exclusions ("!pattern") can re-include paths below an ignored directory.
			if d.IsDir() && !matcher.Exclusions() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking build context: %w", err)
	}
	sort.Strings(files)

	digester := digest.Canonical.Digester()
	h := digester.Hash()
	for _, rel := range files {
		if err := hashEntry(h, dir, rel); err != nil {
			return "", err
		}
	}
	return digester.Digest(), nil
}

func ignoreMatcher(dir string) (*patternmatcher.PatternMatcher, error) {
	var patterns []string
	f, err := os.Open(filepath.Join(dir, ".dockerignore"))
	switch {
	case err == nil:
		defer f.Close()
		patterns, err = ignorefile.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("reading .dockerignore: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading .dockerignore: %w", err)
	}
	matcher, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("parsing .dockerignore: %w", err)
	}
	return matcher, nil
}

func hashEntry(h io.Writer, dir, rel string) error {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(h, "%s\x00%o\x00", rel, info.Mode().Perm())

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "link:%s\x00", target)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hashing %s: %w", rel, err)
	}
	_, err = h.Write([]byte{0})
	return err
}

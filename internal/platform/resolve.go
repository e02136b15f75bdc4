package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// EnvLibraryPath overrides default library resolution.
const EnvLibraryPath = "EVENTDBX_NATIVE_LIB"

// LibraryFileName returns the platform file name of the native artifact.
func LibraryFileName(goos string) string {
	switch goos {
	case "windows":
		return "eventdbx_native.dll"
	case "darwin":
		return "libeventdbx_native.dylib"
	default:
		return "libeventdbx_native.so"
	}
}

// ResolveLibraryPath picks the artifact to load:
//  1. the explicit path (a glob is expanded, first match wins);
//  2. $EVENTDBX_NATIVE_LIB;
//  3. native/target/release, then native/target/debug, under the nearest
//     ancestor of searchFrom that has a native/ directory.
//
// The returned path is not guaranteed to exist; when nothing matched it is
// the preferred (release) candidate so the caller can report it.
func ResolveLibraryPath(explicit, searchFrom string, getenv func(string) string) (string, error) {
	if explicit != "" {
		return expand(explicit)
	}
	if getenv != nil {
		if env := getenv(EnvLibraryPath); env != "" {
			return expand(env)
		}
	}

	if searchFrom == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		searchFrom = wd
	}

	name := LibraryFileName(runtime.GOOS)
	root, err := FindNativeRoot(searchFrom)
	if err != nil {
		abs, absErr := filepath.Abs(searchFrom)
		if absErr != nil {
			return "", absErr
		}
		return filepath.Join(abs, "native", "target", "release", name), nil
	}

	candidates := []string{
		filepath.Join(root, "native", "target", "release", name),
		filepath.Join(root, "native", "target", "debug", name),
	}
	for _, c := range candidates {
		if hasFile(c) {
			return c, nil
		}
	}
	return candidates[0], nil
}

// expand resolves a glob pattern to its first match. Plain paths and
// patterns without matches are returned unchanged.
func expand(pattern string) (string, error) {
	if !hasMeta(pattern) {
		return pattern, nil
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid library pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return pattern, nil
	}
	sort.Strings(matches)
	return matches[0], nil
}

func hasMeta(path string) bool {
	for _, r := range path {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// FindNativeRoot looks upwards from startDir for a directory containing
// native/ (the crate that builds the shared library).
func FindNativeRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if isDir(filepath.Join(dir, "native")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("native root not found above %s", abs)
}

func hasFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package deps

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Resolver finds tool executables.
// Search order:
//  1. Configured override path (if set for the tool)
//  2. <bin dir>/<name>[.exe], where installed tools live
//  3. name on PATH (via exec.LookPath)
//
// Each path is verified to exist and be executable before being returned.
type Resolver struct {
	binDir    string
	overrides map[string]string
	logger    *slog.Logger
}

// NewResolver creates a resolver. overrides maps tool name to a path and may be nil.
func NewResolver(binDir string, overrides map[string]string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	o := make(map[string]string, len(overrides))
	for name, path := range overrides {
		if path != "" {
			o[name] = path
		}
	}
	return &Resolver{binDir: binDir, overrides: o, logger: logger.With("component", "deps_resolver")}
}

// BinDir returns the directory installed tools are written to.
func (r *Resolver) BinDir() string {
	return r.binDir
}

// Resolve returns the path to the named tool.
func (r *Resolver) Resolve(name string) (string, error) {
	if path, ok := r.overrides[name]; ok {
		if isExecutable(path) {
			return path, nil
		}
		r.logger.Warn("configured binary is not executable, searching further",
			slog.String("name", name), slog.String("path", path))
	}

	if r.binDir != "" {
		local := filepath.Join(r.binDir, ExecutableName(name))
		if isExecutable(local) {
			return local, nil
		}
	}

	// LookPath already verifies executability
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("binary %s not found", name)
}

// isExecutable checks if a file exists and is executable by the current user.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	// Windows has no executable bit
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}

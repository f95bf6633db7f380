package infra

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	AppName = "execution-gateway"

	// HomeEnv pins the workspace to an explicit directory.
	HomeEnv = "GATEWAY_HOME"

	localWorkspace = "_workspace"
)

// GetWorkspaceDir returns the root for runtime data.
// Order: $GATEWAY_HOME, a local "_workspace" dir, then the per-user data dir.
func GetWorkspaceDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	if fi, err := os.Stat(localWorkspace); err == nil && fi.IsDir() {
		return localWorkspace
	}
	if base := userDataDir(); base != "" {
		return filepath.Join(base, AppName)
	}
	return localWorkspace
}

// userDataDir mirrors os.UserConfigDir for data: XDG on Linux,
// Application Support on macOS, %APPDATA% on Windows.
func userDataDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if d := os.Getenv("APPDATA"); d != "" {
			return d
		}
		if p := os.Getenv("USERPROFILE"); p != "" {
			return filepath.Join(p, "AppData", "Roaming")
		}
	case "darwin":
		if home != "" {
			return filepath.Join(home, "Library", "Application Support")
		}
	case "linux":
		if d := os.Getenv("XDG_DATA_HOME"); d != "" {
			return d
		}
		if home != "" {
			return filepath.Join(home, ".local", "share")
		}
	}
	return ""
}

// DataDir is where the journal and snapshots live.
func DataDir() string {
	return filepath.Join(GetWorkspaceDir(), "data")
}

// SnapshotDir holds per-broker portfolio snapshots.
func SnapshotDir() string {
	return filepath.Join(DataDir(), "snapshots")
}

// EnsureDir creates path and its parents with 0755.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ResolveJournalPath places a relative journal path under DataDir.
// Absolute paths are returned unchanged.
func ResolveJournalPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(DataDir(), p)
}

// ResolveConfigPath finds config.yaml: $CONFIG_PATH, ./configs, then the
// per-user config dir. Returns "" when none exists; the gateway then runs
// on defaults and env.
func ResolveConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}

	candidates := []string{filepath.Join("configs", "config.yaml")}
	if root, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(root, AppName, "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppDirName is the directory name used under the platform config dir.
const AppDirName = "tabserve"

// PathResolver resolves config, dictionary and database locations relative
// to the user config dir, the executable and the working directory.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     configDirFor(homeDir),
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

// configDirFor returns the platform config directory
func configDirFor(homeDir string) string {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppDirName)
		}
		return filepath.Join(homeDir, ".config", AppDirName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppDirName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppDirName)
	default:
		return filepath.Join(homeDir, ".config", AppDirName)
	}
}

// ConfigDir returns the config directory
func (pr *PathResolver) ConfigDir() string {
	return pr.configDir
}

// GetConfigPath returns the full path for a config file, falling back to
// other writable directories when the config dir cannot be used.
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	if ensureWritableDir(pr.configDir) {
		return filepath.Join(pr.configDir, filename), nil
	}

	fallbackDirs := []string{
		filepath.Join(pr.homeDir, "."+AppDirName),
		filepath.Join(os.TempDir(), AppDirName),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if ensureWritableDir(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath, nil
}

// ResolveFile finds a user supplied file. Absolute paths are used as is,
// relative ones are tried against the working dir, the executable dir and
// the config dir in that order.
func (pr *PathResolver) ResolveFile(userPath string) (string, error) {
	if userPath == "" {
		return "", os.ErrNotExist
	}
	if filepath.IsAbs(userPath) {
		if FileExists(userPath) {
			return userPath, nil
		}
		return "", os.ErrNotExist
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, userPath))
	}
	candidates = append(candidates,
		filepath.Join(pr.executableDir, userPath),
		filepath.Join(pr.configDir, userPath),
	)

	for _, path := range candidates {
		if FileExists(path) {
			log.Debugf("Resolved %s to %s", userPath, path)
			return path, nil
		}
		log.Debugf("Candidate not found: %s", path)
	}
	return "", os.ErrNotExist
}

// ResolveDataPath places a writable file such as a database under the
// config dir unless an absolute path is given.
func (pr *PathResolver) ResolveDataPath(userPath string) string {
	if filepath.IsAbs(userPath) {
		return userPath
	}
	return filepath.Join(pr.configDir, userPath)
}

// ensureWritableDir creates the directory if needed and tests writability
func ensureWritableDir(dir string) bool {
	if err := EnsureDir(dir); err != nil {
		log.Debugf("Cannot create directory %s: %v", dir, err)
		return false
	}
	return testWriteAccess(dir)
}

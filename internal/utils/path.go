package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppName is used for every per-user directory the binary creates.
const AppName = "henkan"

// dictPatterns are the file globs that mark a directory as a dictionary dir.
var dictPatterns = []string{"*.dic", "*.txt", "*.tsv", "*.bin"}

// PathResolver locates dictionaries, config and learned data for the binary
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

	// Resolve any symlinks to get the actual binary location
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
		configDir:     getConfigDir(homeDir),
	}

	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", AppName)
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppName)
		}
		return filepath.Join(homeDir, ".config", AppName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppName)
	default:
		return filepath.Join(homeDir, "."+AppName)
	}
}

// GetDictDir resolves a system dictionary directory.
// It tries, in order: the path as given (absolute or cwd relative),
// relative to the executable, then <exec>/dict and <config>/dict.
func (pr *PathResolver) GetDictDir(userSpecifiedPath string) string {
	var candidates []string
	if filepath.IsAbs(userSpecifiedPath) {
		candidates = append(candidates, userSpecifiedPath)
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, userSpecifiedPath))
	}
	execRelativePath := filepath.Join(pr.executableDir, userSpecifiedPath)
	candidates = append(candidates,
		execRelativePath,
		filepath.Join(pr.executableDir, "dict"),
		filepath.Join(pr.configDir, "dict"),
	)

	for _, path := range candidates {
		if IsDictDir(path) {
			log.Debugf("Found dictionary directory: %s", path)
			return path
		}
		log.Debugf("Dictionary directory candidate not valid: %s", path)
	}
	return execRelativePath
}

// IsDictDir checks if a directory contains at least one dictionary file
func IsDictDir(path string) bool {
	if !IsDir(path) {
		return false
	}
	for _, pattern := range dictPatterns {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

// GetConfigPath returns the full path for a config file
// It ensures the config directory exists and handles read-only filesystem issues
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	if pr.ensureDir(pr.configDir) {
		return filepath.Join(pr.configDir, filename), nil
	}

	fallbackDirs := []string{
		filepath.Join(pr.homeDir, "."+AppName),
		filepath.Join(os.TempDir(), AppName),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if pr.ensureDir(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath, nil
}

// GetLearnDir returns the directory holding the learned dictionary files.
// An explicit path wins; otherwise <config>/learn is used.
func (pr *PathResolver) GetLearnDir(userSpecifiedPath string) string {
	if userSpecifiedPath != "" {
		return userSpecifiedPath
	}
	return filepath.Join(pr.configDir, "learn")
}

// ensureDir creates the directory if it doesn't exist and tests writability
func (pr *PathResolver) ensureDir(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Debugf("Cannot create directory %s: %v", dir, err)
		return false
	}
	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		log.Debugf("Directory %s is not writable: %v", dir, err)
		return false
	}
	os.Remove(testFile)
	return true
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// GetExecutableDir returns the directory containing the executable
func (pr *PathResolver) GetExecutableDir() string {
	return pr.executableDir
}

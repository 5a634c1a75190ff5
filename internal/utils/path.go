package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppName names the config directory.
const AppName = "keyserve"

// PathResolver finds the config and dictionary directories relative to the
// running binary, the working directory and the user's config directory.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver resolves the executable location.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     platformConfigDir(homeDir),
	}
	log.Debugf("PathResolver: execDir=%s configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

func platformConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName)
		}
		return filepath.Join(homeDir, ".config", AppName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppName)
	default:
		return filepath.Join(homeDir, ".config", AppName)
	}
}

// ExecutableDir is the directory holding the binary.
func (pr *PathResolver) ExecutableDir() string {
	return pr.executableDir
}

// ConfigPath returns where filename should live, falling back to
// ~/.keyserve, the temp dir and the executable dir when the config
// directory isn't writable.
func (pr *PathResolver) ConfigPath(filename string) string {
	dirs := []string{
		pr.configDir,
		filepath.Join(pr.homeDir, "."+AppName),
		filepath.Join(os.TempDir(), AppName),
		pr.executableDir,
	}
	for i, dir := range dirs {
		if CheckDirStatus(dir).Writable {
			if i > 0 {
				log.Warnf("Using fallback config location: %s", dir)
			}
			return filepath.Join(dir, filename)
		}
	}
	return filepath.Join(os.TempDir(), filename)
}

// DictionaryDir returns the first candidate directory that holds at least one
// file matching pattern. The candidates are dir itself when absolute, dir
// relative to the binary and to the working directory, then "dictionaries"
// beside the binary, above it and in the config directory. When none
// match, the binary-relative path is returned.
func (pr *PathResolver) DictionaryDir(dir, pattern string) string {
	candidates := pr.dictionaryCandidates(dir)
	for _, c := range candidates {
		if hasMatch(c, pattern) {
			log.Debugf("Found dictionary directory: %s", c)
			return c
		}
		log.Debugf("Dictionary directory candidate not valid: %s", c)
	}
	return filepath.Join(pr.executableDir, dir)
}

func (pr *PathResolver) dictionaryCandidates(dir string) []string {
	var out []string
	if filepath.IsAbs(dir) {
		out = append(out, dir)
	} else {
		out = append(out, filepath.Join(pr.executableDir, dir))
		if cwd, err := os.Getwd(); err == nil {
			out = append(out, filepath.Join(cwd, dir))
		}
	}
	return append(out,
		filepath.Join(pr.executableDir, "dictionaries"),
		filepath.Join(filepath.Dir(pr.executableDir), "dictionaries"),
		filepath.Join(pr.configDir, "dictionaries"),
	)
}

func hasMatch(dir, pattern string) bool {
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	return err == nil && len(matches) > 0
}

// DirStatus is the result of CheckDirStatus.
type DirStatus struct {
	Exists   bool
	Writable bool
	Error    error
}

// CheckDirStatus creates dir if needed and checks whether it is writable.
func CheckDirStatus(dir string) DirStatus {
	var status DirStatus
	if err := os.MkdirAll(dir, 0o755); err != nil {
		status.Error = err
		log.Debugf("Cannot create directory %s: %v", dir, err)
		return status
	}
	status.Exists = true
	marker := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		log.Debugf("Directory %s is not writable: %v", dir, err)
		return status
	}
	os.Remove(marker)
	status.Writable = true
	return status
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AbsolutePath returns path made absolute, or "unknown" for an empty one.
func AbsolutePath(path string) string {
	if path == "" {
		return "unknown"
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

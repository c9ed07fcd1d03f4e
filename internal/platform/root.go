package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the project-level configuration file.
const ConfigFileName = "feedback.yaml"

// FindRoot recursively looks upwards for a project root indicator.
// Indicators are: the .feedback store directory, a feedback.yaml file, or a
// .git directory. It returns the absolute path of the first match.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, DefaultStoreDir) || hasFile(dir, ConfigFileName) || hasFile(dir, ".git") {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("root not found")
}

// DefaultStorePath returns <root>/.feedback for the root containing
// startDir, or .feedback relative to startDir when no root is found.
func DefaultStorePath(startDir string) string {
	root, err := FindRoot(startDir)
	if err != nil {
		return filepath.Join(startDir, DefaultStoreDir)
	}
	return filepath.Join(root, DefaultStoreDir)
}

func hasFile(dir, name string) bool {
	path := filepath.Join(dir, name)
	_, err := os.Stat(path)
	return err == nil
}

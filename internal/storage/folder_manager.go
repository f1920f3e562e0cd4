package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const unknownEmployeeFolder = "unknown"

var (
	whitespacePattern  = regexp.MustCompile(`\s+`)
	unsafeNamePattern  = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	repeatedUnderscore = regexp.MustCompile(`_+`)
)

// FolderManager manages the per-employee folders of the invoice archive
type FolderManager struct {
	baseDir string
	logger  *zap.Logger
}

// NewFolderManager creates a new FolderManager
func NewFolderManager(baseDir string, logger *zap.Logger) *FolderManager {
	return &FolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// CreateEmployeeFolder creates <base>/<sanitized employee>/ and returns its path
func (m *FolderManager) CreateEmployeeFolder(employee string) (string, error) {
	if strings.TrimSpace(employee) == "" {
		return "", fmt.Errorf("cannot create folder: empty employee name")
	}

	folderPath := m.EmployeeFolderPath(employee)
	if err := os.MkdirAll(folderPath, 0755); err != nil {
		m.logger.Error("Failed to create employee folder",
			zap.String("employee", employee),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	m.logger.Debug("Created employee folder",
		zap.String("employee", employee),
		zap.String("folder_path", folderPath))
	return folderPath, nil
}

// EmployeeFolderPath returns the folder path without creating it
func (m *FolderManager) EmployeeFolderPath(employee string) string {
	return filepath.Join(m.baseDir, SanitizeFolderName(employee))
}

// FolderExists checks if an employee folder already exists
func (m *FolderManager) FolderExists(employee string) bool {
	info, err := os.Stat(m.EmployeeFolderPath(employee))
	if err != nil {
		return false
	}
	return info.IsDir()
}

// SanitizeFolderName returns a filesystem-safe version of name. Whitespace
// becomes underscores and everything outside [A-Za-z0-9_-] is dropped.
func SanitizeFolderName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = whitespacePattern.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeNamePattern.ReplaceAllString(name, "")
	name = repeatedUnderscore.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return unknownEmployeeFolder
	}
	return name
}

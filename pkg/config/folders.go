package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type foldersFile struct {
	Folders []string `json:"folders"`
}

// LoadFolders reads the watched folder list, returning nil when the file is absent
func LoadFolders(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f foldersFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f.Folders, nil
}

// SaveFolders persists the watched folder list
func SaveFolders(path string, folders []string) error {
	data, err := json.MarshalIndent(foldersFile{Folders: folders}, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal folders: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logrus.WithField("folders", folders).Info("Saved folder paths")
	return nil
}

// PromptFolders asks for a comma separated folder list
func PromptFolders(in io.Reader, out io.Writer) ([]string, error) {
	fmt.Fprintln(out, "Enter folders to watch (comma separated):")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read folders: %w", err)
	}
	return SplitFolders(line), nil
}

// SplitFolders splits a comma separated list, dropping blanks
func SplitFolders(s string) []string {
	var folders []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			folders = append(folders, p)
		}
	}
	return folders
}

// MissingFolders returns the folders that do not exist
func MissingFolders(folders []string) []string {
	var missing []string
	for _, f := range folders {
		if _, err := os.Stat(f); err != nil {
			missing = append(missing, f)
		}
	}
	return missing
}

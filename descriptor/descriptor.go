// Package descriptor reads the task descriptor file a scanner writes after submitting an analysis.
package descriptor

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FileName is the name the scanner gives the descriptor file.
const FileName = "report-task.txt"

const (
	KeyProjectKey = "projectKey"
	KeyServerURL  = "serverUrl"
	KeyCETaskID   = "ceTaskId"
)

var (
	ErrNotFound     = errors.New("task descriptor not found")
	ErrUnreadable   = errors.New("task descriptor unreadable")
	ErrMissingField = errors.New("task descriptor missing field")
)

type TaskDescriptor struct {
	ProjectKey string
	ServerURL  string
	CETaskID   string
}

// Find walks root in lexical order and returns the path of the first descriptor file.
// Unreadable subdirectories are skipped; a missing root is reported as not found.
func Find(root string) (string, bool) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", false
	}

	var found string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.WithField("path", path).Debugf("skipping unreadable path: %v", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && d.Name() == FileName {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil || found == "" {
		return "", false
	}
	return found, true
}

// Parse reads key=value pairs from a descriptor file. Blank lines and lines starting with
// '#' are skipped, keys match case-insensitively and later keys overwrite earlier ones.
func Parse(path string) (*TaskDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	values := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrUnreadable, path, err)
	}

	d := &TaskDescriptor{
		ProjectKey: values[strings.ToLower(KeyProjectKey)],
		ServerURL:  values[strings.ToLower(KeyServerURL)],
		CETaskID:   values[strings.ToLower(KeyCETaskID)],
	}
	// Checked in this order so the reported field is stable
	switch {
	case d.ProjectKey == "":
		return nil, fmt.Errorf("%w '%s' in %s", ErrMissingField, KeyProjectKey, path)
	case d.ServerURL == "":
		return nil, fmt.Errorf("%w '%s' in %s", ErrMissingField, KeyServerURL, path)
	case d.CETaskID == "":
		return nil, fmt.Errorf("%w '%s' in %s", ErrMissingField, KeyCETaskID, path)
	}
	return d, nil
}

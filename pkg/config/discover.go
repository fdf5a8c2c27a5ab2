package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	defs "xmtest/definitions"
)

var (
	defaultDropinSearch = []string{defs.XmTestConfDropin}
	defaultConfigFile   = filepath.Join(defs.XmTestConfDir, defs.DefaultXmTestConf)
)

// DiscoverFiles lists the config files to load, lowest priority first.
// priority env::file > env::dropin_dir > default::dropin_dir > default config file
func DiscoverFiles() ([]string, error) {
	if override := os.Getenv(defs.XmTestConfEnv); override != "" {
		if err := checkConfigFile(override); err != nil {
			return nil, err
		}
		return []string{override}, nil
	}

	if dirByEnv := os.Getenv(defs.XmTestConfDirEnv); dirByEnv != "" {
		files, err := listConfigDir(dirByEnv)
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			return files, nil
		}
	}

	var files []string
	if err := checkConfigFile(defaultConfigFile); err == nil {
		files = append(files, defaultConfigFile)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	for _, dir := range defaultDropinSearch {
		dropins, err := listConfigDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		files = append(files, dropins...)
	}
	return files, nil
}

func checkConfigFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("xm-test config %s is not a regular file", path)
	}
	if !isINI(path) {
		return fmt.Errorf("unsupported xm-test config extension: %s, should be .ini or .conf", path)
	}
	return nil
}

func listConfigDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if !isINI(full) {
			continue
		}
		files = append(files, full)
	}

	sort.Strings(files)
	return files, nil
}

func isINI(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".conf":
		return true
	default:
		return false
	}
}

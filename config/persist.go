package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/crisisops/sitrack/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before
// modifying a config file.
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "delete oldest backup")
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "read config for backup")
	}
	return errors.Wrap(os.WriteFile(back1, content, DefaultFilePermissions), "create .back1")
}

// GetOverridePath returns the path of the runtime-managed override file in
// ~/.sitrack/override.toml. Settings written here survive restarts and sit
// above the user config in precedence.
func GetOverridePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sitrack", "override.toml")
}

func loadOrInitializeOverrides() (map[string]interface{}, string, error) {
	configPath := GetOverridePath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return nil, "", errors.Wrap(err, "create .sitrack directory")
	}

	var config map[string]interface{}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrap(err, "parse override config")
		}
	} else {
		config = make(map[string]interface{})
	}

	return config, configPath, nil
}

func saveOverrides(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "marshal override config")
	}

	// Mark this as our own write to prevent reload loops
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	return errors.Wrap(os.WriteFile(configPath, data, DefaultFilePermissions), "write override config")
}

func updateSection(section, key string, value interface{}) error {
	config, configPath, err := loadOrInitializeOverrides()
	if err != nil {
		return errors.Wrap(err, "load override config")
	}

	var m map[string]interface{}
	if existing, ok := config[section].(map[string]interface{}); ok {
		m = existing
	} else {
		m = make(map[string]interface{})
	}
	m[key] = value
	config[section] = m

	return saveOverrides(config, configPath)
}

// UpdateTrackingMaxChainDepth persists the interlock chain depth cap.
func UpdateTrackingMaxChainDepth(depth int) error {
	return updateSection("tracking", "max_chain_depth", depth)
}

// UpdateServerPort persists the HTTP server port.
func UpdateServerPort(port int) error {
	return updateSection("server", "port", port)
}

// UpdateDatabasePath persists the database path.
func UpdateDatabasePath(path string) error {
	return updateSection("database", "path", path)
}

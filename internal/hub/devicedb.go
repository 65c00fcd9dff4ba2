package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DeviceEntry declares one known device in a devices-directory file.
type DeviceEntry struct {
	IEEE         string `json:"ieee"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	FriendlyName string `json:"friendly_name,omitempty"`
	Quirk        string `json:"quirk,omitempty"`
}

// deviceFile is the JSON structure for files in the devices directory.
type deviceFile struct {
	Devices []DeviceEntry `json:"devices"`
}

// LoadDeviceDir reads all *.json files from a directory. Returns an
// empty list (not an error) if the directory doesn't exist or is empty.
func LoadDeviceDir(dir string, logger *slog.Logger) ([]DeviceEntry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob devices dir: %w", err)
	}
	if len(matches) == 0 {
		logger.Info("no device definition files found", "dir", dir)
		return nil, nil
	}

	var entries []DeviceEntry
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var df deviceFile
		if err := json.Unmarshal(data, &df); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, e := range df.Devices {
			if e.IEEE == "" {
				return nil, fmt.Errorf("%s: device entry without ieee", path)
			}
			entries = append(entries, e)
		}
		logger.Info("loaded device file", "path", filepath.Base(path), "devices", len(df.Devices))
	}
	return entries, nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "floww", "config":
		return flowwTemplate, nil
	case "sheet":
		return sheetTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const flowwTemplate = `[encoder]
max_track_id_bytes = 4096
max_payload_bytes = 1048576

[decoder]
max_track_id_bytes = 4096
max_payload_bytes = 1048576
strict_checksum = false
chunk_size = 32768

[sheet]
ordering = "reject"

[import]
validation = "strict"
track_prefix = "track"
skip_empty = false
`

const sheetTemplate = `format = 1
ticks_per_beat = 480

[[tracks]]
id = "piano"

  [[tracks.events]]
  kind = "tempo"
  at = 0
  micros_per_beat = 500000

  [[tracks.events]]
  kind = "note"
  at = 0
  duration = 480
  pitch = 60
  velocity = 100

  [[tracks.events]]
  kind = "note"
  at = 480
  duration = 480
  pitch = 64
  velocity = 90
`

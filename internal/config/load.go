package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/viewer-launcher/internal/model"
)

// FileBaseName is the settings file name without extension.
const FileBaseName = "viewer.config"

// Extensions lists recognized settings file extensions in discovery order.
var Extensions = []string{".jsonc", ".json", ".yaml", ".yml", ".toml"}

// Discover returns the first settings file found in dir, trying each of
// Extensions in order. ok is false when there is none.
func Discover(dir string) (path string, ok bool) {
	for _, ext := range Extensions {
		candidate := filepath.Join(dir, FileBaseName+ext)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// Load decodes the settings file at path over Defaults() and validates the
// result. The format is chosen by extension. A missing or malformed file is
// a configuration error.
func Load(path string) (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, fmt.Errorf("settings file not found: %s: %w", path, model.ErrConfiguration)
		}
		return s, fmt.Errorf("failed to read settings file %s: %v: %w", path, err, model.ErrConfiguration)
	}

	if err := decode(path, data, &s); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings file %s: %v: %w", path, err, model.ErrConfiguration)
	}
	if err := s.Validate(); err != nil {
		return Defaults(), fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadOrDefault loads explicit when set, else the file discovered in
// searchDir, else returns Defaults(). The returned path is the file used, or
// empty.
func LoadOrDefault(explicit, searchDir string) (Settings, string, error) {
	path := explicit
	if path == "" {
		found, ok := Discover(searchDir)
		if !ok {
			return Defaults(), "", nil
		}
		path = found
	}
	s, err := Load(path)
	return s, path, err
}

func decode(path string, data []byte, s *Settings) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".jsonc":
		// Comments and trailing commas are accepted in both spellings.
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		md, err := toml.Decode(string(data), s)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	default:
		return fmt.Errorf("unsupported settings format %q (want one of %s)", ext, strings.Join(Extensions, ", "))
	}
}

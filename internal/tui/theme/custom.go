package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir reads user themes from *.yaml / *.yml files in dir. Roles missing
// from a file are taken from Dark. A missing directory is not an error.
func LoadDir(dir string) ([]Theme, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading theme dir: %w", err)
	}

	var (
		themes []Theme
		errs   []error
	)
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		t, err := loadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if t.Name == "" {
			t.Name = strings.TrimSuffix(e.Name(), ext)
		}
		t.Name = strings.ToLower(t.Name)
		themes = append(themes, t)
	}
	return themes, errors.Join(errs...)
}

func loadFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("reading theme %s: %w", path, err)
	}
	t := Dark
	t.Name = ""
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Theme{}, fmt.Errorf("parsing theme %s: %w", path, err)
	}
	return t, nil
}

// Merge appends custom themes to base; a custom theme replaces a built-in
// of the same name.
func Merge(base, custom []Theme) []Theme {
	out := append([]Theme(nil), base...)
	for _, c := range custom {
		replaced := false
		for i := range out {
			if out[i].Name == c.Name {
				out[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, c)
		}
	}
	return out
}

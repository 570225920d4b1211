package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

// goCatalogFuncName is the function a Go catalog file must define.
const goCatalogFuncName = "SignTypes"

// DefinitionFile pairs a parsed catalog with its on-disk source.
type DefinitionFile struct {
	Definition CatalogDefinition
	Path       string
}

// ParseDefinitionYAML decodes and validates a single catalog payload.
func ParseDefinitionYAML(data []byte) (CatalogDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return CatalogDefinition{}, fmt.Errorf("plugin: definition payload is empty")
	}
	var def CatalogDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return CatalogDefinition{}, fmt.Errorf("plugin: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return CatalogDefinition{}, err
	}
	return def.Normalized(), nil
}

// LoadDir reads every catalog file in dir: *.yaml and *.yml are decoded,
// *.go files are interpreted and their SignTypes() function called.
// A missing directory means no catalogs. Results are ordered by path.
func LoadDir(dir string) ([]DefinitionFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var defs []DefinitionFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(trimmed, entry.Name())
		var (
			file DefinitionFile
			err  error
		)
		switch {
		case isYAMLFile(entry.Name()):
			file, err = LoadYAMLFile(path)
		case filepath.Ext(entry.Name()) == ".go":
			file, err = LoadGoFile(path)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		defs = append(defs, file)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
	return defs, nil
}

// LoadYAMLFile reads a YAML catalog from disk.
func LoadYAMLFile(path string) (DefinitionFile, error) {
	data, err := readPlugin(path)
	if err != nil {
		return DefinitionFile{}, err
	}
	def, err := ParseDefinitionYAML(data)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = catalogName(path)
	}
	return DefinitionFile{Definition: def, Path: filepath.Clean(path)}, nil
}

// LoadGoFile interprets a Go catalog and collects the records returned by
// its SignTypes() ([]map[string]any, error) function.
func LoadGoFile(path string) (DefinitionFile, error) {
	code, err := readPlugin(path)
	if err != nil {
		return DefinitionFile{}, err
	}
	if len(bytes.TrimSpace(code)) == 0 {
		return DefinitionFile{}, fmt.Errorf("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: load stdlib: %w", path, err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	fnValue, err := i.Eval(goCatalogFuncName)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s must define %s() ([]map[string]any, error): %w", path, goCatalogFuncName, err)
	}
	records, err := invokeCatalogFunc(fnValue)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	// Round-trip through YAML so interpreter-built values decode exactly like
	// hand-written catalogs.
	payload, err := yaml.Marshal(CatalogDefinition{Name: catalogName(path), SignTypes: records})
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	def, err := ParseDefinitionYAML(payload)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return DefinitionFile{Definition: def, Path: filepath.Clean(path)}, nil
}

func readPlugin(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("plugin: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	return data, nil
}

func invokeCatalogFunc(fn reflect.Value) ([]map[string]any, error) {
	if !fn.IsValid() {
		return nil, fmt.Errorf("missing %s function", goCatalogFuncName)
	}
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goCatalogFuncName)
	}
	if fn.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%s must not take arguments", goCatalogFuncName)
	}
	results := fn.Call(nil)
	if len(results) == 0 || len(results) > 2 {
		return nil, fmt.Errorf("%s must return ([]map[string]any[, error])", goCatalogFuncName)
	}
	if len(results) == 2 && !results[1].IsNil() {
		if e, ok := results[1].Interface().(error); ok && e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("%s returned non-error second value", goCatalogFuncName)
	}
	list := results[0]
	if records, ok := list.Interface().([]map[string]any); ok {
		return records, nil
	}
	if list.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%s must return []map[string]any", goCatalogFuncName)
	}
	records := make([]map[string]any, list.Len())
	for idx := range records {
		record, ok := list.Index(idx).Interface().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not map[string]any", goCatalogFuncName, idx)
		}
		records[idx] = record
	}
	return records, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func catalogName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

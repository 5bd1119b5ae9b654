package scenario

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.starlark.net/syntax"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml builtin/*.star
var builtinFS embed.FS

// BuiltinPrefix marks a reference to an embedded scenario in Source.
const BuiltinPrefix = "builtin:"

// ErrUnsupported is returned for files that are neither YAML nor Starlark.
var ErrUnsupported = errors.New("unsupported scenario format")

var extensions = []string{".yaml", ".yml", ".star"}

// ErrNotFound is returned when no scenario matches a reference.
var ErrNotFound = errors.New("scenario not found")

// Load reads a scenario file, choosing the format from its extension.
func Load(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read scenario %s: %w", filename, err)
	}
	return Parse(filename, data)
}

// Parse decodes data according to the extension of name.
func Parse(name string, data []byte) (*Scenario, error) {
	var (
		sc  *Scenario
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		sc, err = ParseYAML(name, data)
	case ".star":
		sc, err = ParseStarlark(name, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// ParseYAML decodes a declarative scenario. Unknown fields are rejected.
func ParseYAML(source string, data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	sc := &Scenario{}
	if err := dec.Decode(sc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	sc.Source = source
	if sc.Name == "" {
		sc.Name = baseName(source)
	}
	return sc, nil
}

// ParseStarlark checks that data is a syntactically valid script and wraps
// it in a scenario. A leading string literal becomes the description.
func ParseStarlark(source string, data []byte) (*Scenario, error) {
	f, err := scriptOptions.Parse(source, data, syntax.RetainComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}

	sc := &Scenario{
		Name:   baseName(source),
		Source: source,
		Script: data,
	}
	if len(f.Stmts) > 0 {
		if expr, ok := f.Stmts[0].(*syntax.ExprStmt); ok {
			if lit, ok := expr.X.(*syntax.Literal); ok && lit.Token == syntax.STRING {
				if doc, ok := lit.Value.(string); ok {
					sc.Description = strings.TrimSpace(doc)
				}
			}
		}
	}
	return sc, nil
}

// Builtin returns an embedded scenario by name.
func Builtin(name string) (*Scenario, error) {
	for _, ext := range []string{".yaml", ".star"} {
		file := path.Join("builtin", name+ext)
		data, err := builtinFS.ReadFile(file)
		if err != nil {
			continue
		}
		sc, err := Parse(file, data)
		if err != nil {
			return nil, err
		}
		sc.Source = BuiltinPrefix + name
		return sc, nil
	}
	return nil, fmt.Errorf("%w: builtin %q", ErrNotFound, name)
}

// List returns the names of the embedded scenarios.
func List() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, baseName(e.Name()))
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Open resolves ref as a file path first and as a builtin name otherwise.
// A "builtin:" prefix forces the builtin lookup. Files inside dir are found
// by bare name.
func Open(ref, dir string) (*Scenario, error) {
	if name, ok := strings.CutPrefix(ref, BuiltinPrefix); ok {
		return Builtin(name)
	}

	candidates := []string{ref}
	if dir != "" && !filepath.IsAbs(ref) {
		candidates = append(candidates,
			filepath.Join(dir, ref),
			filepath.Join(dir, ref+".yaml"),
			filepath.Join(dir, ref+".star"),
		)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return Load(c)
		}
	}
	return Builtin(ref)
}

// Catalog returns the builtin scenarios followed by the scenario files in
// dir. A missing dir is not an error; files that fail to load are logged
// and skipped.
func Catalog(dir string, logger *slog.Logger) ([]*Scenario, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var out []*Scenario
	for _, name := range List() {
		sc, err := Builtin(name)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	if dir == "" {
		return out, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to read scenarios directory: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !slices.Contains(extensions, ext) {
			continue
		}
		sc, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Warn("skipping scenario", slog.String("file", e.Name()), slog.Any("error", err))
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

func baseName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

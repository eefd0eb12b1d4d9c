package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownKind     = errors.New("unknown kind")
	ErrUnknownScreen   = errors.New("unknown screen")
	ErrDuplicateScreen = errors.New("duplicate screen")
)

// Screen bundles the descriptors of one console page.
type Screen struct {
	Name         string
	Title        string
	EmptyMessage string
	Columns      []ColumnSpec
	Fields       []FieldSpec
}

// Field returns the named field spec.
func (s Screen) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Catalog is the set of screens loaded from descriptor files.
type Catalog struct {
	screens map[string]Screen
	order   []string
}

type document struct {
	Screens []screenDoc `yaml:"screens"`
}

type screenDoc struct {
	Name         string      `yaml:"name"`
	Title        string      `yaml:"title"`
	EmptyMessage string      `yaml:"empty_message"`
	Columns      []columnDoc `yaml:"columns"`
	Fields       []fieldDoc  `yaml:"fields"`
}

type columnDoc struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Kind  string `yaml:"kind"`
	Align string `yaml:"align"`
}

type fieldDoc struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Kind     string `yaml:"kind"`
	Required bool   `yaml:"required"`
	Constraints `yaml:",inline"`
}

// LoadFS walks fsys and parses every .yaml/.yml screen descriptor file.
// A nil filesystem yields an empty catalog.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	cat := &Catalog{screens: make(map[string]Screen)}
	if fsys == nil {
		return cat, nil
	}

	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDescriptor(p) {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", p, err)
		}
		return cat.parse(data, p)
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// Parse loads descriptors from a single YAML document.
func Parse(data []byte) (*Catalog, error) {
	cat := &Catalog{screens: make(map[string]Screen)}
	if err := cat.parse(data, "<inline>"); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) parse(data []byte, source string) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("schema: decode %s: %w", source, err)
	}
	for _, sd := range doc.Screens {
		name := strings.TrimSpace(sd.Name)
		if name == "" {
			return fmt.Errorf("schema: %s defines a screen without a name", source)
		}
		if _, exists := c.screens[name]; exists {
			return fmt.Errorf("schema: %w %q (file %s)", ErrDuplicateScreen, name, source)
		}
		screen, err := sd.toScreen(name)
		if err != nil {
			return fmt.Errorf("schema: %s: screen %q: %w", source, name, err)
		}
		c.screens[name] = screen
		c.order = append(c.order, name)
	}
	return nil
}

func (sd screenDoc) toScreen(name string) (Screen, error) {
	s := Screen{Name: name, Title: sd.Title, EmptyMessage: sd.EmptyMessage}
	for _, cd := range sd.Columns {
		kind, err := ParseColumnKind(cd.Kind)
		if err != nil {
			return Screen{}, fmt.Errorf("column %q: %w", cd.ID, err)
		}
		s.Columns = append(s.Columns, ColumnSpec{ID: cd.ID, Label: cd.Label, Kind: kind, Align: cd.Align})
	}
	seen := make(map[string]bool)
	for _, fd := range sd.Fields {
		if seen[fd.Name] {
			return Screen{}, fmt.Errorf("field %q declared twice", fd.Name)
		}
		seen[fd.Name] = true
		kind, err := ParseFieldKind(fd.Kind)
		if err != nil {
			return Screen{}, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		s.Fields = append(s.Fields, FieldSpec{
			Name:        fd.Name,
			Label:       fd.Label,
			Kind:        kind,
			Required:    fd.Required,
			Constraints: fd.Constraints,
		})
	}
	return s, nil
}

// Screen returns a copy of the named screen; callers may bind options and
// formatters on it without affecting the catalog.
func (c *Catalog) Screen(name string) (Screen, error) {
	if c == nil {
		return Screen{}, fmt.Errorf("%w: %s", ErrUnknownScreen, name)
	}
	s, ok := c.screens[name]
	if !ok {
		return Screen{}, fmt.Errorf("%w: %s", ErrUnknownScreen, name)
	}
	s.Columns = append([]ColumnSpec(nil), s.Columns...)
	s.Fields = append([]FieldSpec(nil), s.Fields...)
	return s, nil
}

// Names lists screens in load order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

func isDescriptor(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/kilombo/crm/internal/errs"
	"github.com/kilombo/crm/internal/logger"
)

// DefaultPath is where the store lives unless told otherwise.
const DefaultPath = "config.yaml"

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// File is the on-disk layout of config.yaml.
type File struct {
	Database ConnectionConfig `yaml:"database"`
	Log      logger.Config    `yaml:"log"`
	Server   ServerConfig     `yaml:"server"`
}

// DefaultFile returns the contents written when no file exists.
func DefaultFile() File {
	return File{
		Database: Default(),
		Log:      logger.Config{Level: "info", Format: "json", TimeFormat: "rfc3339"},
		Server:   ServerConfig{Addr: ":8080"},
	}
}

// Store is a YAML-backed settings store. It is safe for concurrent use.
//
// file holds the effective settings; doc is the file as written on disk,
// ${VAR} references included, and is what gets saved back.
type Store struct {
	mu   sync.RWMutex
	path string
	file File
	doc  yaml.Node
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandRefs replaces ${VAR} with the value of VAR. Any other '$' is literal.
func expandRefs(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Load reads path, expanding ${VAR} references from the environment.
// A missing file is created with DefaultFile.
func Load(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.file = DefaultFile()
		if err := s.doc.Encode(s.file); err != nil {
			return nil, errs.Wrap(errs.ErrKindUnexpected, "no se pudo serializar la configuración", err).WithOp("load config")
		}
		if err := s.write(&s.doc); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnexpected, "no se pudo leer la configuración", err).WithOp("load config")
	}

	f := DefaultFile()
	if err := yaml.Unmarshal([]byte(expandRefs(string(data))), &f); err != nil {
		return nil, errs.Wrap(errs.ErrKindValidationFailed,
			fmt.Sprintf("configuración inválida en %s", path), err).WithOp("load config")
	}
	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindValidationFailed,
			fmt.Sprintf("configuración inválida en %s", path), err).WithOp("load config")
	}
	s.file = f
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Connection returns the current connection settings.
func (s *Store) Connection() ConnectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Database
}

// File returns a copy of the whole file.
func (s *Store) File() File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file
}

// Set validates cfg and persists it.
func (s *Store) Set(cfg ConnectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveDatabase(cfg)
}

// Reset restores the default connection settings and persists them.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveDatabase(Default())
}

// saveDatabase writes cfg as the database section, leaving the rest of the
// document, ${VAR} references and comments included, as it was on disk.
// Caller holds mu.
func (s *Store) saveDatabase(cfg ConnectionConfig) error {
	doc, err := s.withSection("database", cfg)
	if err != nil {
		return errs.Wrap(errs.ErrKindUnexpected, "no se pudo serializar la configuración", err).WithOp("save config")
	}
	if err := s.write(&doc); err != nil {
		return err
	}
	s.doc = doc
	s.file.Database = cfg
	return nil
}

// withSection returns a copy of the document with key set to v. s.doc is
// not modified, so a failed write leaves the store unchanged.
func (s *Store) withSection(key string, v any) (yaml.Node, error) {
	var value yaml.Node
	if err := value.Encode(v); err != nil {
		return yaml.Node{}, err
	}

	doc := s.doc
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		inner := *doc.Content[0]
		doc.Content = []*yaml.Node{&inner}
		root = &inner
	}
	if root.Kind != yaml.MappingNode {
		// Empty or non-mapping file: start over from the effective settings.
		doc = yaml.Node{}
		if err := doc.Encode(s.file); err != nil {
			return yaml.Node{}, err
		}
		root = &doc
	}

	content := make([]*yaml.Node, len(root.Content))
	copy(content, root.Content)
	root.Content = content
	for i := 0; i+1 < len(content); i += 2 {
		if content[i].Value == key {
			content[i+1] = &value
			return doc, nil
		}
	}
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &value)
	return doc, nil
}

// write replaces the file atomically.
func (s *Store) write(doc *yaml.Node) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errs.Wrap(errs.ErrKindUnexpected, "no se pudo serializar la configuración", err).WithOp("save config")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return errs.Wrap(errs.ErrKindUnexpected, "no se pudo guardar la configuración", err).WithOp("save config")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(errs.ErrKindUnexpected, "no se pudo guardar la configuración", err).WithOp("save config")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.ErrKindUnexpected, "no se pudo guardar la configuración", err).WithOp("save config")
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return errs.Wrap(errs.ErrKindUnexpected, "no se pudo guardar la configuración", err).WithOp("save config")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errs.Wrap(errs.ErrKindUnexpected, "no se pudo guardar la configuración", err).WithOp("save config")
	}
	return nil
}

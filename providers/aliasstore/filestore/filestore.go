package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/internal/jsonschema"
	"github.com/leofalp/replyparse/providers/aliasstore"
	"github.com/leofalp/replyparse/providers/observability"
)

// Format is the encoding of an alias file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for a path whose extension is not
// .yaml, .yml or .json.
var ErrUnsupportedFormat = errors.New("unsupported alias file format")

// document is the on-disk layout:
//
//	version: 1
//	aliases:
//	  - canonical: replySuggestion
//	    aliases: [replySuggestion, 回复建议]
type document struct {
	Version int         `json:"version,omitempty" yaml:"version,omitempty"`
	Aliases alias.Table `json:"aliases" yaml:"aliases"`
}

const currentVersion = 1

var (
	validatorOnce sync.Once
	validator     *jsonschema.Validator
	validatorErr  error
)

func documentValidator() (*jsonschema.Validator, error) {
	validatorOnce.Do(func() {
		s, err := jsonschema.Generate[document]()
		if err != nil {
			validatorErr = fmt.Errorf("failed to generate alias file schema: %w", err)
			return
		}
		validator, validatorErr = jsonschema.NewValidator(s)
	})
	return validator, validatorErr
}

// Store keeps an alias table in a YAML or JSON file. Save rewrites the file
// atomically with the union of its content and the saved table.
type Store struct {
	path     string
	format   Format
	observer observability.Provider

	mu sync.Mutex
}

var _ aliasstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithObserver sets the provider used for load, save and reload logging.
func WithObserver(p observability.Provider) Option {
	return func(s *Store) {
		s.observer = p
	}
}

// WithFormat overrides the format derived from the file extension.
func WithFormat(f Format) Option {
	return func(s *Store) {
		s.format = f
	}
}

// New returns a store for path. The file need not exist yet.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{path: filepath.Clean(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s.format = FormatYAML
	case ".json":
		s.format = FormatJSON
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.format != FormatYAML && s.format != FormatJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return s, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing or empty file is an empty table.
func (s *Store) Load(ctx context.Context) (alias.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	observability.Resolve(ctx, s.observer).Debug(ctx, "Alias file loaded", s.attrs(len(t))...)
	return t, nil
}

// Save merges t into the file.
func (s *Store) Save(ctx context.Context, t alias.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := aliasstore.Validate(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readLocked()
	if err != nil {
		return err
	}
	merged := aliasstore.Merge(current, t)

	data, err := encode(s.format, document{Version: currentVersion, Aliases: merged})
	if err != nil {
		return err
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("filestore: write %s: %w", s.path, err)
	}

	observability.Resolve(ctx, s.observer).Debug(ctx, "Alias file saved", s.attrs(len(merged))...)
	return nil
}

func (s *Store) readLocked() (alias.Table, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return alias.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", s.path, err)
	}
	return decode(s.format, data)
}

func (s *Store) attrs(entries int) []observability.Attribute {
	return []observability.Attribute{
		observability.String(observability.AttrStoreBackend, "file"),
		observability.String(observability.AttrStorePath, s.path),
		observability.Int(observability.AttrStoreEntries, entries),
	}
}

// decode parses an alias file and checks it against the document schema
// and the table rules.
func decode(format Format, data []byte) (alias.Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return alias.Table{}, nil
	}

	jsonData := data
	if format == FormatYAML {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", aliasstore.ErrInvalidTable, err)
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", aliasstore.ErrInvalidTable, err)
		}
		jsonData = converted
	}

	v, err := documentValidator()
	if err != nil {
		return nil, err
	}
	if err := v.ValidateJSON(jsonData); err != nil {
		return nil, fmt.Errorf("%w: %w", aliasstore.ErrInvalidTable, err)
	}

	var doc document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", aliasstore.ErrInvalidTable, err)
	}
	if doc.Version > currentVersion {
		return nil, fmt.Errorf("%w: version %d is newer than %d", aliasstore.ErrInvalidTable, doc.Version, currentVersion)
	}
	if err := aliasstore.Validate(doc.Aliases); err != nil {
		return nil, err
	}
	if doc.Aliases == nil {
		doc.Aliases = alias.Table{}
	}
	return doc.Aliases, nil
}

func encode(format Format, doc document) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("filestore: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("filestore: encode yaml: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("filestore: encode json: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// writeAtomic writes through a temporary file in the same directory and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

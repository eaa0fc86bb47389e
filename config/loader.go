package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"graph-serializer/internal/ctxlog"
)

// ErrUnknownFormat is returned by Load for files that are neither YAML nor HCL.
var ErrUnknownFormat = errors.New("config: unknown document format")

// Load reads the document at path, choosing the parser by extension:
// .yaml and .yml for YAML, .hcl for HCL.
func Load(ctx context.Context, path string) (*Document, error) {
	ctx = ctxlog.Ensure(ctx, nil)
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var doc *Document

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	case ".hcl":
		doc, err = ParseHCL(data, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	if err != nil {
		return nil, err
	}

	logger.Debug("Loaded config document.", "path", path, "aliases", len(doc.Aliases))

	return doc, nil
}

// ParseYAML parses a YAML document. Unknown keys are rejected.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(&doc)

	return &doc, nil
}

// ParseHCL parses an HCL document; filename is used in diagnostics only.
func ParseHCL(data []byte, filename string) (*Document, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var doc Document

	diags = gohcl.DecodeBody(file.Body, nil, &doc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}

	applyDefaults(&doc)

	return &doc, nil
}

func applyDefaults(doc *Document) {
	if doc.Version == "" {
		doc.Version = "1"
	}
}

// MarshalYAML renders doc as YAML.
func MarshalYAML(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// envelope mirrors the raw YAML layout of a document before the data
// section is decoded into its schema-specific type.
type envelope struct {
	Schema   string    `yaml:"schema"`
	Metadata Metadata  `yaml:"metadata"`
	Data     yaml.Node `yaml:"data"`
}

// LoadFile reads a multi-document YAML file and decodes every chartctl document in it.
func LoadFile(path string) ([]*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read documents %q: %w", path, err)
	}
	docs, err := Load(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("load documents %q: %w", path, err)
	}
	return docs, nil
}

// Load decodes a multi-document YAML stream into typed documents.
// Documents with unknown schemas are skipped; empty documents are ignored.
func Load(r io.Reader) ([]*Document, error) {
	var docs []*Document
	dec := yaml.NewDecoder(r)
	for {
		var env envelope
		if err := dec.Decode(&env); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode document: %w", err)
		}
		if env.Schema == "" && env.Metadata.Name == "" {
			continue
		}
		doc, err := decodeEnvelope(&env)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// decodeEnvelope turns a raw envelope into a typed Document, or nil for
// schemas chartctl does not own.
func decodeEnvelope(env *envelope) (*Document, error) {
	kind := KindForSchema(env.Schema)
	if kind == "" {
		return nil, nil
	}
	if env.Metadata.Name == "" {
		return nil, fmt.Errorf("document with schema %q has no metadata.name", env.Schema)
	}

	doc := &Document{
		Schema:   env.Schema,
		Kind:     kind,
		Metadata: env.Metadata,
	}

	switch kind {
	case KindManifest:
		var m Manifest
		if err := env.Data.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", kind, env.Metadata.Name, err)
		}
		doc.Manifest = &m
	case KindChartGroup:
		var g ChartGroup
		if err := env.Data.Decode(&g); err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", kind, env.Metadata.Name, err)
		}
		if len(g.ChartGroupList) == 0 {
			return nil, fmt.Errorf("%s %q has an empty chart_group list", kind, env.Metadata.Name)
		}
		doc.ChartGroup = &g
	case KindChart:
		var c Chart
		if err := env.Data.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", kind, env.Metadata.Name, err)
		}
		if err := validateChart(&c, env.Metadata.Name); err != nil {
			return nil, err
		}
		c.Source.applyDefaults()
		doc.Chart = &c
	}

	return doc, nil
}

// validateChart enforces the field invariants the loader owns.
func validateChart(c *Chart, name string) error {
	if c.ReleaseName == "" {
		return fmt.Errorf("chart %q has no release_name", name)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("chart %q has negative timeout %d", name, c.Timeout)
	}
	switch c.Source.Type {
	case SourceGit, SourceLocal, SourceTar:
		if c.Source.Location == "" {
			return fmt.Errorf("chart %q has source.type %q without a location", name, c.Source.Type)
		}
	case "":
		return fmt.Errorf("chart %q has no source.type", name)
	default:
		return fmt.Errorf("chart %q has unknown source.type %q", name, c.Source.Type)
	}
	return nil
}

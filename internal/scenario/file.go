package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// Read loads a timeline file. The format follows the extension: .yaml,
// .yml or .hcl.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data, path)
	if err != nil {
		return nil, err
	}
	doc.Dir = filepath.Dir(path)
	return doc, nil
}

// Decode parses data in the format implied by filename's extension.
func Decode(data []byte, filename string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return decodeYAML(data, filename)
	case ".hcl":
		return decodeHCL(data, filename)
	}
	return nil, fmt.Errorf("%s: unknown timeline format, want .yaml, .yml or .hcl", filename)
}

func decodeYAML(data []byte, filename string) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty document", filename)
		}
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &doc, nil
}

func decodeHCL(data []byte, filename string) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	var doc Document
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL body: %s", diags.Error())
	}
	for li := range doc.Layers {
		for ci := range doc.Layers[li].Clips {
			cd := &doc.Layers[li].Clips[ci]
			if cd.AnchorPreset != "" && cd.AnchorUV != nil {
				return nil, fmt.Errorf("%s: layer %q clip %q: set anchor or anchor_uv, not both",
					filename, doc.Layers[li].Name, cd.Name)
			}
			cd.Anchor = AnchorDoc{Preset: cd.AnchorPreset, UV: cd.AnchorUV}
		}
	}
	return &doc, nil
}

// Marshal renders doc as YAML.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores doc as a YAML file, creating the parent directory.
func Write(doc *Document, path string) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

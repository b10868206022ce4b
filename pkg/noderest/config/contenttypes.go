package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/tendant/node-rest-api/pkg/noderest"
)

// ContentType configures the output of one content type.
type ContentType struct {
	Name   string   `toml:"name"`
	Fields []string `toml:"fields"`

	// Metatags override the global metatag defaults for this type.
	Metatags map[string]string `toml:"metatags"`
}

// FormatterConfig converts the content type to a formatter configuration.
func (ct ContentType) FormatterConfig() noderest.FormatterConfig {
	return noderest.FormatterConfig{ContentType: ct.Name, Fields: ct.Fields}
}

type contentTypesFile struct {
	ContentTypes []ContentType `toml:"content_type"`
}

// LoadContentTypes reads [[content_type]] tables from a TOML file:
//
//	[[content_type]]
//	name = "article"
//	fields = ["title", "body", "field_tags"]
//
//	[content_type.metatags]
//	description = "[node:summary]"
func LoadContentTypes(path string) ([]ContentType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content types: %w", err)
	}
	return ParseContentTypes(data)
}

// ParseContentTypes decodes the TOML content type format.
func ParseContentTypes(data []byte) ([]ContentType, error) {
	var file contentTypesFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: parse content types: %v", noderest.ErrInvalidConfig, err)
	}

	for _, ct := range file.ContentTypes {
		if err := ct.FormatterConfig().Validate(); err != nil {
			return nil, err
		}
	}
	return file.ContentTypes, nil
}

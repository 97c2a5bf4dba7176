// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema loads metadata templates from YAML files and indexes them
// in a SQLite store so extraction can look them up by key.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

// validFieldTypes is the set of accepted FieldType values.
var validFieldTypes = map[types.FieldType]bool{
	types.FieldString:  true,
	types.FieldNumber:  true,
	types.FieldDate:    true,
	types.FieldBoolean: true,
	types.FieldEnum:    true,
}

// LoadFile reads and validates one template YAML file. A missing key
// defaults to the file name without extension.
func LoadFile(path string) (*types.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}

	var tmpl types.Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", path, err)
	}

	if tmpl.Key == "" {
		base := filepath.Base(path)
		tmpl.Key = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := Validate(&tmpl); err != nil {
		return nil, fmt.Errorf("template %s: %w", tmpl.Key, err)
	}

	return &tmpl, nil
}

// Validate checks a template for definition problems: unknown field types,
// enums without options, inverted bounds, uncompilable patterns. All
// problems are reported at once.
func Validate(tmpl *types.Template) error {
	if len(tmpl.Fields) == 0 {
		return fmt.Errorf("template has no fields")
	}

	var problems []string
	for name, def := range tmpl.Fields {
		fieldType := types.FieldType(strings.ToLower(string(def.Type)))
		if def.Type != "" && !validFieldTypes[fieldType] {
			problems = append(problems, fmt.Sprintf("field %q: unknown type %q", name, def.Type))
			continue
		}
		if fieldType == types.FieldEnum && len(def.Options) == 0 {
			problems = append(problems, fmt.Sprintf("field %q: enum without options", name))
		}
		if def.Min != nil && def.Max != nil && *def.Min > *def.Max {
			problems = append(problems, fmt.Sprintf("field %q: min %v exceeds max %v", name, *def.Min, *def.Max))
		}
		if def.MinLength != nil && *def.MinLength < 0 {
			problems = append(problems, fmt.Sprintf("field %q: negative min_length", name))
		}
		if def.MinLength != nil && def.MaxLength != nil && *def.MinLength > *def.MaxLength {
			problems = append(problems, fmt.Sprintf("field %q: min_length %d exceeds max_length %d", name, *def.MinLength, *def.MaxLength))
		}
		if def.Pattern != "" {
			if _, err := regexp.Compile(def.Pattern); err != nil {
				problems = append(problems, fmt.Sprintf("field %q: invalid pattern: %v", name, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

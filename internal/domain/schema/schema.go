// Package schema compiles and caches the JSON Schema documents that back
// odin's two on-disk formats, odin.plugin.yaml and scoped skill-registry
// files, as a second line of defense behind their strict YAML decoders.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Name identifies one of the fixed document schemas this package compiles.
type Name string

const (
	// PluginManifest validates the shape of odin.plugin.yaml.
	PluginManifest Name = "plugin_manifest"
	// SkillRegistry validates the shape of a scoped skill-registry document.
	SkillRegistry Name = "skill_registry"
)

var documents = map[Name]string{
	PluginManifest: pluginManifestSchema,
	SkillRegistry:  skillRegistrySchema,
}

// Compiler caches compiled schemas by Name so repeated validation (e.g. one
// call per discovered plugin) only pays compilation cost once.
type Compiler struct {
	mu    sync.RWMutex
	cache map[Name]*jsonschema.Schema
}

// NewCompiler returns an empty, ready-to-use Compiler.
func NewCompiler() *Compiler {
	return &Compiler{cache: make(map[Name]*jsonschema.Schema)}
}

// Compiled returns the compiled schema for name, compiling and caching it on
// first use. An unknown Name is a programmer error and returns an error.
func (c *Compiler) Compiled(name Name) (*jsonschema.Schema, error) {
	c.mu.RLock()
	if schema, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return schema, nil
	}
	c.mu.RUnlock()

	source, ok := documents[name]
	if !ok {
		return nil, fmt.Errorf("schema: unknown document %q", name)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	resourceID := string(name) + ".json"
	if err := compiler.AddResource(resourceID, bytes.NewReader([]byte(source))); err != nil {
		return nil, fmt.Errorf("schema: failed to add resource %s: %w", resourceID, err)
	}

	schema, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("schema: failed to compile %s: %w", resourceID, err)
	}

	c.mu.Lock()
	c.cache[name] = schema
	c.mu.Unlock()

	return schema, nil
}

// ValidateJSON validates raw JSON document bytes against the named schema,
// flattening the resulting jsonschema.ValidationError tree into a single
// readable error.
func (c *Compiler) ValidateJSON(name Name, raw []byte) error {
	schema, err := c.Compiled(name)
	if err != nil {
		return err
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("schema: invalid JSON for %s: %w", name, err)
	}

	if err := schema.Validate(value); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return formatValidationError(validationErr)
		}
		return fmt.Errorf("schema: validation failed for %s: %w", name, err)
	}
	return nil
}

func formatValidationError(err *jsonschema.ValidationError) error {
	var messages []string

	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if e.Message != "" {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(err)

	if len(messages) == 0 {
		return fmt.Errorf("validation failed")
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(messages, "\n  - "))
}

const pluginManifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "plugin", "distribution"],
  "properties": {
    "schema_version": {"type": "integer", "const": 1},
    "plugin": {
      "type": "object",
      "required": ["name", "version", "runtime", "compatibility", "entrypoint"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "version": {"type": "string", "minLength": 1},
        "runtime": {"type": "string", "minLength": 1},
        "compatibility": {
          "type": "object",
          "required": ["core_version"],
          "properties": {"core_version": {"type": "string", "minLength": 1}}
        },
        "entrypoint": {
          "type": "object",
          "required": ["command"],
          "properties": {
            "command": {"type": "string", "minLength": 1},
            "args": {"type": "array", "items": {"type": "string"}}
          }
        },
        "capabilities": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "scope": {"type": "array", "items": {"type": "string"}}
            }
          }
        },
        "hooks": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["event", "handler"],
            "properties": {
              "event": {"type": "string", "minLength": 1},
              "handler": {"type": "string", "minLength": 1}
            }
          }
        }
      }
    },
    "distribution": {
      "type": "object",
      "required": ["source", "integrity"],
      "properties": {
        "source": {
          "type": "object",
          "required": ["type", "ref"],
          "properties": {
            "type": {"type": "string", "minLength": 1},
            "ref": {"type": "string", "minLength": 1}
          }
        },
        "integrity": {
          "type": "object",
          "required": ["checksum_sha256"],
          "properties": {"checksum_sha256": {"type": "string", "minLength": 1}}
        },
        "provenance": {
          "type": "object",
          "properties": {
            "builder": {"type": "string"},
            "repo": {"type": "string"},
            "commit": {"type": "string"},
            "build_time": {"type": "string"}
          }
        }
      }
    },
    "signing": {
      "type": "object",
      "properties": {
        "required": {"type": "boolean"},
        "method": {"type": "string"},
        "signature": {"type": "string"},
        "certificate": {"type": "string"},
        "certificate_identity": {"type": "string"},
        "issuer": {"type": "string"}
      }
    }
  }
}`

const skillRegistrySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "scope"],
  "properties": {
    "schema_version": {"type": "integer", "const": 1},
    "scope": {"type": "string", "enum": ["global", "project", "user"]},
    "skills": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "trust_level", "source"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "trust_level": {"type": "string", "enum": ["trusted", "caution", "untrusted"]},
          "source": {"type": "string", "minLength": 1},
          "pinned_version": {"type": "string"},
          "capabilities": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "scope": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

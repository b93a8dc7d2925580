package themes

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const itemsSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"patternProperties": {
		"^.+$": {
			"type": "object",
			"properties": {
				"id": {"type": ["string", "number"]}
			}
		}
	},
	"additionalProperties": false
}`

const queriesScopeSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["data", "options"],
	"properties": {
		"data": {
			"type": "object",
			"required": ["items", "queries"],
			"properties": {
				"items": {
					"type": "object",
					"additionalProperties": {"type": "object"}
				},
				"queries": {
					"type": "object",
					"additionalProperties": {
						"type": "object",
						"required": ["itemKeys"],
						"properties": {
							"itemKeys": {
								"type": "array",
								"items": {"type": "string"}
							},
							"found": {"type": "integer", "minimum": 0}
						}
					}
				}
			}
		},
		"options": {
			"type": "object",
			"properties": {
				"itemKey": {"type": "string"}
			}
		}
	}
}`

var (
	schemaOnce    sync.Once
	itemsSchema   *jsonschema.Schema
	queriesSchema *jsonschema.Schema
	schemaInitErr error
)

func compiledSchemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		itemsSchema, schemaInitErr = compileSchema("themes-items.json", itemsSchemaJSON)
		if schemaInitErr != nil {
			return
		}
		queriesSchema, schemaInitErr = compileSchema("themes-queries-scope.json", queriesScopeSchemaJSON)
	})
	return itemsSchema, queriesSchema, schemaInitErr
}

func compileSchema(name, source string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("themes: parse schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("themes: add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("themes: compile schema %s: %w", name, err)
	}
	return schema, nil
}

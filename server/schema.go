package server

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const matchRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["gt", "pred"],
	"additionalProperties": false,
	"properties": {
		"gt": {"type": "string", "minLength": 1},
		"pred": {"type": "string", "minLength": 1},
		"scores": {"type": "string"},
		"heatmap": {"type": "string"},
		"channel": {"type": "integer", "minimum": -1},
		"thresholds": {
			"type": "array",
			"items": {"type": "number", "minimum": 0, "maximum": 1}
		}
	}
}`

const boxRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["volume"],
	"additionalProperties": false,
	"properties": {
		"volume": {"type": "string", "minLength": 1},
		"ids": {"type": "array", "items": {"type": "integer", "minimum": 0}},
		"count": {"type": "boolean"}
	}
}`

var (
	matchSchema = jsonschema.MustCompileString("match.json", matchRequestSchema)
	boxSchema   = jsonschema.MustCompileString("bbox.json", boxRequestSchema)
)

func validateMatchRequest(v interface{}) error {
	return matchSchema.Validate(v)
}

func validateBoxRequest(v interface{}) error {
	return boxSchema.Validate(v)
}

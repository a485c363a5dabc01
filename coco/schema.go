package coco

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const rleSchema = `{
	"oneOf": [
		{"type": "null"},
		{
			"type": "object",
			"required": ["size", "counts"],
			"properties": {
				"size": {"type": "array", "items": {"type": "integer", "minimum": 0}, "minItems": 2, "maxItems": 2},
				"counts": {"type": "string"}
			}
		}
	]
}`

const predictionsSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["video_id", "score", "category_id", "segmentations"],
		"properties": {
			"video_id": {"type": "integer", "minimum": 0},
			"score": {"type": "number"},
			"category_id": {"type": "integer", "minimum": 1},
			"segmentations": {"type": "array", "items": ` + rleSchema + `}
		}
	}
}`

const datasetSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["info", "licenses", "videos", "categories", "annotations"],
	"properties": {
		"info": {"type": "object", "required": ["description", "year"]},
		"licenses": {"type": "array"},
		"videos": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "height", "width", "length"],
				"properties": {
					"id": {"type": "integer"},
					"height": {"type": "integer", "minimum": 0},
					"width": {"type": "integer", "minimum": 0},
					"length": {"type": "integer", "minimum": 0}
				}
			}
		},
		"categories": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "object", "required": ["id", "name"]}
		},
		"annotations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "video_id", "category_id", "segmentations", "areas", "iscrowd"],
				"properties": {
					"id": {"type": "integer", "minimum": 1},
					"segmentations": {"type": "array", "items": ` + rleSchema + `},
					"areas": {"type": "array", "items": {"type": "integer", "minimum": 0}},
					"iscrowd": {"enum": [0, 1]}
				}
			}
		}
	}
}`

var (
	compileOnce   sync.Once
	compiledPreds *jsonschema.Schema
	compiledGT    *jsonschema.Schema
	compileErr    error
)

func compileSchemas() error {
	compileOnce.Do(func() {
		if compiledPreds, compileErr = jsonschema.CompileString("predictions.json", predictionsSchema); compileErr != nil {
			return
		}
		compiledGT, compileErr = jsonschema.CompileString("dataset.json", datasetSchema)
	})
	return compileErr
}

func validate(sch *jsonschema.Schema, data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return sch.Validate(v)
}

// ValidatePredictions checks an encoded prediction list.
func ValidatePredictions(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}
	if err := validate(compiledPreds, data); err != nil {
		return fmt.Errorf("bad prediction document: %v", err)
	}
	return nil
}

// ValidateDataset checks an encoded ground-truth dataset.
func ValidateDataset(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}
	if err := validate(compiledGT, data); err != nil {
		return fmt.Errorf("bad ground-truth document: %v", err)
	}
	return nil
}

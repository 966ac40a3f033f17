package exam

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://exam-paper.json"

// paperSchema is the contract for PaperResponse. Unknown properties are
// tolerated; MCQ questions must carry at least four options and an answer.
// Marks share the 1000 ceiling of GenerationRequest.TotalMarks, which keeps
// MarksSum far from int overflow.
const paperSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["examPaper"],
  "properties": {
    "examPaper": {
      "type": "object",
      "required": ["metadata", "questions"],
      "properties": {
        "metadata": {
          "type": "object",
          "required": ["title", "board", "grade", "subject", "duration", "totalMarks", "instructions"],
          "properties": {
            "title": {"type": "string"},
            "board": {"type": "string"},
            "grade": {"type": "integer"},
            "subject": {"type": "string"},
            "duration": {"type": "integer"},
            "totalMarks": {"type": "integer", "minimum": 0, "maximum": 1000},
            "instructions": {"type": "string"}
          }
        },
        "questions": {
          "type": "array",
          "items": {"$ref": "#/$defs/question"}
        }
      }
    }
  },
  "$defs": {
    "question": {
      "type": "object",
      "required": ["id", "type", "difficulty", "marks", "chapter", "topic", "questionText"],
      "properties": {
        "id": {"type": "string"},
        "type": {"enum": ["MCQ", "SHORT_ANSWER", "PROBLEM_SOLVING"]},
        "difficulty": {"enum": ["EASY", "MEDIUM", "HARD"]},
        "marks": {"type": "integer", "minimum": 0, "maximum": 1000},
        "chapter": {"type": "string"},
        "topic": {"type": "string"},
        "questionText": {"type": "string"},
        "options": {"type": "array", "items": {"type": "string"}},
        "correctAnswer": {"type": "string"},
        "solutionHint": {"type": "string"}
      },
      "if": {
        "properties": {"type": {"const": "MCQ"}},
        "required": ["type"]
      },
      "then": {
        "required": ["options", "correctAnswer"],
        "properties": {"options": {"minItems": 4}}
      }
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// paperValidator returns the compiled schema. It is immutable once built.
func paperValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(paperSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

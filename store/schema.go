package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// taskFileSchemaSource describes the persisted task file: a list of task
// records carrying every field, keyed by "id" or the legacy "task_id".
const taskFileSchemaSource = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["title", "description", "category", "due_date", "priority", "status"],
    "anyOf": [
      {"required": ["id"]},
      {"required": ["task_id"]}
    ],
    "properties": {
      "id": {"type": "integer", "minimum": 1},
      "task_id": {"type": "integer", "minimum": 1},
      "title": {"type": "string"},
      "description": {"type": "string"},
      "category": {"type": "string"},
      "due_date": {"type": "string"},
      "priority": {"type": "string"},
      "status": {"type": "string"}
    }
  }
}`

var taskFileSchema = jsonschema.MustCompileString("tasks.schema.json", taskFileSchemaSource)

// validateDocument checks a decoded JSON document against the task file schema.
func validateDocument(doc any) error {
	err := taskFileSchema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	var msgs []string
	collectSchemaErrors(&msgs, ve)
	if len(msgs) == 0 {
		return errors.New(ve.Message)
	}
	return errors.New(strings.Join(msgs, "; "))
}

func collectSchemaErrors(msgs *[]string, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		path := jsonPointerToPath(err.InstanceLocation)
		if path == "" {
			*msgs = append(*msgs, err.Message)
			return
		}
		*msgs = append(*msgs, fmt.Sprintf("%s: %s", path, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(msgs, cause)
	}
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

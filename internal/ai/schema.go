package ai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"clause-extractor/internal/model"
)

// clauseSchemaJSON is the shape every clause item must satisfy. Items that
// fail it are dropped rather than failing the whole call.
const clauseSchemaJSON = `{
	"type": "object",
	"required": ["clause_type", "content"],
	"properties": {
		"clause_type": {"type": "string", "minLength": 1},
		"content": {"type": "string", "minLength": 1},
		"page_number": {"type": ["integer", "null"], "minimum": 1}
	}
}`

var clauseSchema = mustCompileClauseSchema()

func mustCompileClauseSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("clause.json", strings.NewReader(clauseSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add clause schema: %v", err))
	}
	return compiler.MustCompile("clause.json")
}

// ParseClauses extracts a JSON clause array from raw provider output and
// validates it item by item. Models often wrap the array in prose or code
// fences, so the outermost bracket pair is sliced out first. Invalid items
// are dropped; zero valid items is ErrMalformedResponse.
func ParseClauses(raw string) ([]model.Clause, error) {
	arr := sliceJSONArray(raw)
	if arr == "" {
		return nil, fmt.Errorf("%w: no JSON array in output", ErrMalformedResponse)
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	clauses := make([]model.Clause, 0, len(items))
	dropped := 0
	for _, item := range items {
		var value any
		if err := json.Unmarshal(item, &value); err != nil {
			dropped++
			continue
		}
		if err := clauseSchema.Validate(value); err != nil {
			slog.Debug("dropping clause failing schema validation", "error", err)
			dropped++
			continue
		}
		var clause model.Clause
		if err := json.Unmarshal(item, &clause); err != nil {
			dropped++
			continue
		}
		clauses = append(clauses, clause)
	}

	if dropped > 0 {
		slog.Warn("provider returned invalid clause items", "dropped", dropped, "kept", len(clauses))
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("%w: zero valid clause items", ErrMalformedResponse)
	}
	return clauses, nil
}

// sliceJSONArray returns the substring between the first '[' and the last
// ']', or "" when no such pair exists.
func sliceJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

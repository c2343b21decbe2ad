package output

import (
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Query evaluates a JSONPath expression, e.g.
// "$.part_data.parts_list[?(@.node_type == 'part')].name", against the
// JSON document at path.
func Query(path, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return x.Get(root), nil
}

// Format renders a query result for display: strings verbatim, everything
// else as indented JSON.
func Format(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return oj.JSON(v, &oj.Options{Indent: 2, Sort: true})
}

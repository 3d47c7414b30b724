package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// filter evaluates an expr expression against the JSON fields of a resource,
// e.g. `support_level <= 2 && hasTag("volunteer")`.
type filter struct {
	expression string
	program    *vm.Program
}

// compileFilter compiles expression. An empty expression yields a nil filter matching everything.
func compileFilter(expression string) (*filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(helperFunctions(nil)),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", expression, err)
	}

	return &filter{expression: expression, program: program}, nil
}

// Match reports whether v satisfies the filter.
func (f *filter) Match(v any) (bool, error) {
	if f == nil {
		return true, nil
	}

	env, err := fieldsOf(v)
	if err != nil {
		return false, err
	}
	for name, fn := range helperFunctions(env) {
		if _, ok := env[name]; !ok {
			env[name] = fn
		}
	}

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", f.expression, err)
	}

	return result.(bool), nil
}

// fieldsOf returns the JSON object of v as a map.
func fieldsOf(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]any)
	}

	return fields, nil
}

// helperFunctions returns the functions available in filter expressions.
// hasTag and age look at the tags and birthdate fields of fields. String
// matching is covered by the contains and startsWith operators of expr.
func helperFunctions(fields map[string]any) map[string]any {
	tags, _ := fields["tags"].([]any)
	birthdate, _ := fields["birthdate"].(string)

	return map[string]any{
		"hasTag": func(tag string) bool {
			for _, t := range tags {
				if s, ok := t.(string); ok && strings.EqualFold(s, tag) {
					return true
				}
			}
			return false
		},
		"daysSince": func(value string) int {
			t, err := parseTimestamp(value)
			if err != nil {
				return -1
			}
			return int(time.Since(t).Hours() / 24)
		},
		"age": func() int {
			t, err := parseTimestamp(birthdate)
			if err != nil {
				return -1
			}
			return yearsBetween(t, time.Now())
		},
	}
}

// yearsBetween returns the number of full years from t to now.
func yearsBetween(t, now time.Time) int {
	years := now.Year() - t.Year()
	if now.Month() < t.Month() || (now.Month() == t.Month() && now.Day() < t.Day()) {
		years--
	}

	return years
}

// parseTimestamp parses the formats resources are encoded with.
func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	return time.Parse(time.DateOnly, value)
}

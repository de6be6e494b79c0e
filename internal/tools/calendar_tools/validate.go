package calendar_tools

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// validator checks raw tool arguments against the tool schemas before they
// are decoded into typed argument structs.
type validator struct {
	once    sync.Once
	schemas map[string]*gojsonschema.Schema
	err     error
}

var argsValidator validator

func (v *validator) compile() {
	v.schemas = make(map[string]*gojsonschema.Schema, len(specs))
	for _, spec := range specs {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(spec.Parameters))
		if err != nil {
			v.err = fmt.Errorf("failed to compile schema for %s: %w", spec.Name, err)
			return
		}
		v.schemas[spec.Name] = schema
	}
}

// validate returns the list of schema violations for args, or nil when the
// arguments are acceptable.
func (v *validator) validate(tool string, args []byte) ([]string, error) {
	v.once.Do(v.compile)
	if v.err != nil {
		return nil, v.err
	}
	schema, ok := v.schemas[tool]
	if !ok {
		return nil, fmt.Errorf("no schema for tool %q", tool)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return []string{err.Error()}, nil
	}
	if result.Valid() {
		return nil, nil
	}
	details := make([]string, len(result.Errors()))
	for i, e := range result.Errors() {
		details[i] = e.String()
	}
	return details, nil
}

package template

import (
	"fmt"
	"strings"
)

// InvalidVariableError is returned for a command-line variable that is not key:value.
type InvalidVariableError struct {
	Raw string
}

func (e *InvalidVariableError) Error() string {
	return fmt.Sprintf("invalid variable %q: format is key:value", e.Raw)
}

// ParseVars turns key:value pairs into a variable set. The pair is split at
// the first colon and every later colon stays in the value, so
// "url:https://remedy.example" yields url = "https://remedy.example" rather
// than a value with its colons stripped.
func ParseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, ":")
		if !ok || k == "" || v == "" {
			return nil, &InvalidVariableError{Raw: kv}
		}
		vars[k] = v
	}
	return vars, nil
}

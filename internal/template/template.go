// Package template renders request payloads from templates with named
// {{ placeholder }} variables. Rendering refuses to run until every
// placeholder has a value.
package template

import (
	"regexp"
	"sort"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// MissingVariablesError reports every placeholder that had no value.
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	return "missing variables " + strings.Join(e.Names, ", ")
}

// FreeVariables returns the distinct placeholder names referenced by src, sorted.
func FreeVariables(src string) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(src, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	sort.Strings(names)
	return names
}

// Missing returns the placeholders of src that vars does not define.
func Missing(src string, vars map[string]string) []string {
	var missing []string
	for _, name := range FreeVariables(src) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Render substitutes every placeholder in src with its value from vars.
// Variables not referenced by src are ignored.
func Render(src string, vars map[string]string) (string, error) {
	if missing := Missing(src, vars); len(missing) > 0 {
		return "", &MissingVariablesError{Names: missing}
	}
	out := placeholder.ReplaceAllStringFunc(src, func(match string) string {
		return vars[placeholder.FindStringSubmatch(match)[1]]
	})
	return out, nil
}

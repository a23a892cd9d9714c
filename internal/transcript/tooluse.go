package transcript

import (
	"encoding/json"
	"regexp"
)

// pathFields are tool-input keys whose string values are taken verbatim as
// referenced paths.
var pathFields = []string{"file_path", "path", "notebook_path"}

// absPathRe heuristically finds absolute paths inside shell-command text.
var absPathRe = regexp.MustCompile(`(?:^|[\s"'=(])(/[A-Za-z0-9._][A-Za-z0-9._/\-]*)`)

// referencedPaths extracts file paths from a tool invocation's input:
// explicit path-like fields first, then the absolute-path heuristic applied
// to shell-command text.
func referencedPaths(input json.RawMessage) []string {
	if len(input) == 0 {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(input, &fields); err != nil {
		return nil
	}

	var paths []string
	for _, key := range pathFields {
		if v, ok := fields[key].(string); ok && v != "" {
			paths = append(paths, v)
		}
	}
	if command, ok := fields["command"].(string); ok {
		for _, m := range absPathRe.FindAllStringSubmatch(command, -1) {
			paths = append(paths, m[1])
		}
	}
	return paths
}

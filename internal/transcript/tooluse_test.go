package transcript

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestReferencedPaths(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			"file_path field",
			`{"file_path":"/src/app/main.go","old_string":"a","new_string":"b"}`,
			[]string{"/src/app/main.go"},
		},
		{
			"notebook_path field",
			`{"notebook_path":"/home/dev/analysis.ipynb"}`,
			[]string{"/home/dev/analysis.ipynb"},
		},
		{
			"paths inside shell command",
			`{"command":"grep -r TODO /src/app && cat /etc/hosts"}`,
			[]string{"/src/app", "/etc/hosts"},
		},
		{
			"quoted path in command",
			`{"command":"rm \"/tmp/build cache/out.log\""}`,
			[]string{"/tmp/build"},
		},
		{
			"relative paths ignored",
			`{"command":"ls ./src && cat notes.txt"}`,
			nil,
		},
		{
			"field and command combined",
			`{"path":"/var/data","command":"du -sh /var/data/raw"}`,
			[]string{"/var/data", "/var/data/raw"},
		},
		{
			"empty input",
			``,
			nil,
		},
		{
			"non-object input",
			`"just a string"`,
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := referencedPaths(json.RawMessage(tt.input))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("referencedPaths(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

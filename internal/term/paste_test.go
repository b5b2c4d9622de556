package term

import (
	"reflect"
	"testing"
)

func TestSplitPaste(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		lines []string
		tail  string
	}{
		{name: "empty", in: "", lines: nil, tail: ""},
		{name: "fragment only", in: "submit CTF", lines: []string{}, tail: "submit CTF"},
		{name: "one line", in: "help\n", lines: []string{"help"}, tail: ""},
		{name: "crlf and tail", in: "help\r\nchallenges\r\nhint 2", lines: []string{"help", "challenges"}, tail: "hint 2"},
		{name: "tabs", in: "submit\tX\n", lines: []string{"submit X"}, tail: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines, tail := SplitPaste(tc.in)
			if len(lines) != len(tc.lines) || (len(lines) > 0 && !reflect.DeepEqual(lines, tc.lines)) {
				t.Fatalf("lines = %q, want %q", lines, tc.lines)
			}
			if tail != tc.tail {
				t.Fatalf("tail = %q, want %q", tail, tc.tail)
			}
		})
	}
}

package sanitize

import "testing"

func TestTextClean(t *testing.T) {
	cleaner := NewText()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  red umbrella ", want: "red umbrella"},
		{name: "inline tags", in: "<b>red</b> umbrella", want: "red umbrella"},
		{name: "ampersand kept", in: "tea & cake", want: "tea & cake"},
		{name: "script dropped", in: "<script>alert(1)</script>", want: ""},
		{name: "attributes dropped", in: `<a href="https://x.test" onclick="x()">hi</a>`, want: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleaner.Clean(tt.in); got != tt.want {
				t.Fatalf("Clean(%q): got %q want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNilTextOnlyTrims(t *testing.T) {
	var cleaner *Text
	if got := cleaner.Clean(" <b>x</b> "); got != "<b>x</b>" {
		t.Fatalf("unexpected nil cleaner output %q", got)
	}
}

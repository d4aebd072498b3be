package tokens

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "Cat DOG", []string{"cat", "dog"}},
		{"strips punctuation", "cat, dog!", []string{"cat", "dog"}},
		{"drops empty tokens", "cat ... dog", []string{"cat", "dog"}},
		{"sorts result", "zebra apple mango", []string{"apple", "mango", "zebra"}},
		{"keeps digits", "r2d2 c-3po", []string{"c3po", "r2d2"}},
		{"drops non ascii", "日本語 cat", []string{"cat"}},
		{"collapses whitespace", "  cat \t dog \n", []string{"cat", "dog"}},
		{"empty input", "", []string{}},
		{"only punctuation", "!!! ???", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtractDuplicatesKept(t *testing.T) {
	got := Extract("cat cat")
	if !reflect.DeepEqual(got, []string{"cat", "cat"}) {
		t.Fatalf("duplicates should survive: %v", got)
	}
}

package parser

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"empty", "", nil},
		{"only spaces", "    ", nil},
		{"single token", "COUNT", []string{"COUNT"}},
		{"three tokens", "SET a 1", []string{"SET", "a", "1"}},
		{"space runs", "  SET   a  2 3  ", []string{"SET", "a", "2", "3"}},
		{"tab is not a separator", "SET a\tb", []string{"SET", "a\tb"}},
		{"utf8", "SET ключ значение", []string{"SET", "ключ", "значение"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.line)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

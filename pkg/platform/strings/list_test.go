package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "blank", input: "  ", expected: nil},
		{name: "single broker", input: "localhost:9092", expected: []string{"localhost:9092"}},
		{
			name:     "trims whitespace",
			input:    " kafka-1:9092 , kafka-2:9092",
			expected: []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name:     "drops empty entries",
			input:    "kafka-1:9092,,kafka-2:9092,",
			expected: []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name:     "removes repeats preserving order",
			input:    "b:9092,a:9092,b:9092",
			expected: []string{"b:9092", "a:9092"},
		},
		{name: "only separators", input: ",,", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestDedupeAndTrimPreservesCase(t *testing.T) {
	assert.Equal(t, []string{"Foo", "foo"}, DedupeAndTrim([]string{"Foo", " foo", "Foo "}))
}

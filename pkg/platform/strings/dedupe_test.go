package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"},
		DedupeAndTrim([]string{" kafka-1:9092", "kafka-2:9092 ", "kafka-1:9092", "", "  "}))
	assert.Empty(t, DedupeAndTrim(nil))
}

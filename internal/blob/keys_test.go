package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyScheme(t *testing.T) {
	assert.Equal(t, "alice/report.pdf/report.pdf", RawKey("alice", "report.pdf"))
	assert.Equal(t, "alice/report.pdf/index.vec", IndexPayloadKey("alice", "report.pdf"))
	assert.Equal(t, "alice/report.pdf/index.json", IndexMetadataKey("alice", "report.pdf"))
}

// All three artifacts share a per-document prefix so deletes can enumerate
// them without listing the bucket.
func TestKeysSharePrefix(t *testing.T) {
	keys := []string{
		RawKey("u", "doc.txt"),
		IndexPayloadKey("u", "doc.txt"),
		IndexMetadataKey("u", "doc.txt"),
	}
	for _, k := range keys {
		assert.Contains(t, k, "u/doc.txt/")
	}
}

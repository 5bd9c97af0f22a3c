package blob

import "fmt"

// Object key scheme inside the bucket. The raw upload and the two index
// artifacts for a document live under {user}/{filename}/, so a rebuild
// overwrites the previous index in place.
const (
	IndexPayloadExt  = "vec"
	IndexMetadataExt = "json"
)

// RawKey is where the uploaded document bytes live.
func RawKey(userID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", userID, filename, filename)
}

// IndexPayloadKey is the serialized vector entries artifact.
func IndexPayloadKey(userID, filename string) string {
	return fmt.Sprintf("%s/%s/index.%s", userID, filename, IndexPayloadExt)
}

// IndexMetadataKey is the index descriptor artifact.
func IndexMetadataKey(userID, filename string) string {
	return fmt.Sprintf("%s/%s/index.%s", userID, filename, IndexMetadataExt)
}

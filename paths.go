package vrt

import (
	"encoding/json"
	"fmt"
)

// MetadataFile is the name of the per-identity metadata blob.
const MetadataFile = "metadata.json"

// Metadata is recorded once per test identity, the first time it runs.
type Metadata struct {
	NumScreenshots int `json:"numScreenshots"`
}

// MetadataKey returns the storage key of an identity's metadata.
func MetadataKey(identity string) string {
	return identity + Separator + MetadataFile
}

// ImageKey returns the storage key of the index-th baseline image.
func ImageKey(identity string, index int) string {
	return fmt.Sprintf("%s%s%03d.png", identity, Separator, index)
}

func (m Metadata) marshal() ([]byte, error) {
	return json.Marshal(m)
}

func parseMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("vrt: parse %s: %w", MetadataFile, err)
	}
	if m.NumScreenshots < 0 {
		return Metadata{}, fmt.Errorf("vrt: parse %s: negative numScreenshots %d", MetadataFile, m.NumScreenshots)
	}
	return m, nil
}

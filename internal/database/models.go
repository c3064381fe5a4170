package database

import (
	"time"

	"media-indexer/internal/mediatypes"
)

// TagKind categorizes where a tag came from.
type TagKind string

const (
	TagKindManual   TagKind = "manual"
	TagKindAIScene  TagKind = "ai_scene"
	TagKindAIObject TagKind = "ai_object"
	TagKindAIPerson TagKind = "ai_person"
	TagKindLocation TagKind = "location"
	TagKindType     TagKind = "type"
)

// Asset is one indexed media file.
type Asset struct {
	Path        string
	Fingerprint string
	Size        int64
	CapturedAt  time.Time
	Type        mediatypes.AssetType
	Thumbnail   []byte
}

// Tag is a label attachable to assets. Value is the normalized
// (lowercase) form used for uniqueness; Display preserves the original
// casing.
type Tag struct {
	ID      int64
	Value   string
	Display string
	Kind    TagKind
}

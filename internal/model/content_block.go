package model

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BlockType discriminates the shape of a content block's versions.
type BlockType int

const (
	BlockTypeText      BlockType = 1
	BlockTypeImage     BlockType = 2
	BlockTypeTable     BlockType = 3
	BlockTypeCode      BlockType = 4
	BlockTypeImageLink BlockType = 5
)

var (
	// ErrMalformedVersion is returned when a block's latest version does not
	// match the shape its block_type promises.
	ErrMalformedVersion = errors.New("content block version is malformed")
	// ErrUnknownBlockType is returned for block types outside the supported set.
	ErrUnknownBlockType = errors.New("unknown content block type")
	// ErrNoVersions is returned when a block has an empty content history.
	ErrNoVersions = errors.New("content block has no versions")
)

// ContentBlock holds every version of a single block of content owned by one
// entity. Content, Dates and Authors are parallel append-only JSON lists; the
// last element of each is current. Text-family blocks version plain strings,
// image-family blocks version [storageKey, title] pairs.
type ContentBlock struct {
	ID           string         `gorm:"primaryKey;uuid;not null" json:"ID"`
	EntityID     string         `gorm:"uuid;not null;index" json:"parent"`
	BlockType    BlockType      `gorm:"not null" json:"block_type"`
	Content      datatypes.JSON `gorm:"not null" json:"content"`
	Dates        datatypes.JSON `json:"dates"`
	Authors      datatypes.JSON `json:"authors"`
	CreationTime string         `json:"creation_time"`
	CreationUser string         `json:"creation_user"`
	Deleted      bool           `gorm:"index" json:"deleted"`
	CreatedAt    time.Time      `json:"-"`
	UpdatedAt    time.Time      `json:"-"`
}

// TextVersion is one historical value of a text, table or code block.
type TextVersion string

// ImageVersion is one historical value of an image or image link block.
type ImageVersion struct {
	Key   string
	Title string
}

// NewTextBlock creates a block with a single text version authored by user.
func NewTextBlock(entityID, user, content string) *ContentBlock {
	now := time.Now().UTC().Format(TimeLayout)
	return &ContentBlock{
		ID:           uuid.New().String(),
		EntityID:     entityID,
		BlockType:    BlockTypeText,
		Content:      encodeJSON([]string{content}),
		Dates:        encodeJSON([]string{now}),
		Authors:      encodeJSON([]string{user}),
		CreationTime: now,
		CreationUser: user,
	}
}

// NewImageBlock creates a block whose versions are (storageKey, title) pairs.
func NewImageBlock(entityID, user, storageKey, title string) *ContentBlock {
	now := time.Now().UTC().Format(TimeLayout)
	return &ContentBlock{
		ID:           uuid.New().String(),
		EntityID:     entityID,
		BlockType:    BlockTypeImage,
		Content:      encodeJSON([][]string{{storageKey, title}}),
		Dates:        encodeJSON([]string{now}),
		Authors:      encodeJSON([]string{user}),
		CreationTime: now,
		CreationUser: user,
	}
}

// rawVersions decodes the content column into loosely typed versions.
func (b *ContentBlock) rawVersions() ([]json.RawMessage, error) {
	var versions []json.RawMessage
	if err := json.Unmarshal(b.Content, &versions); err != nil {
		return nil, ErrMalformedVersion
	}
	return versions, nil
}

// VersionCount reports the length of the content history. Editing only ever
// appends, so this is monotonically non-decreasing over a block's lifetime.
func (b *ContentBlock) VersionCount() int {
	versions, err := b.rawVersions()
	if err != nil {
		return 0
	}
	return len(versions)
}

// LatestText returns the current value of a text-family block.
func (b *ContentBlock) LatestText() (TextVersion, error) {
	switch b.BlockType {
	case BlockTypeText, BlockTypeTable, BlockTypeCode:
	default:
		return "", ErrUnknownBlockType
	}
	versions, err := b.rawVersions()
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", ErrNoVersions
	}
	var text string
	if err := json.Unmarshal(versions[len(versions)-1], &text); err != nil {
		return "", ErrMalformedVersion
	}
	return TextVersion(text), nil
}

// LatestImage returns the current value of an image-family block. A version
// that is not a two-element [storageKey, title] array is malformed.
func (b *ContentBlock) LatestImage() (ImageVersion, error) {
	switch b.BlockType {
	case BlockTypeImage, BlockTypeImageLink:
	default:
		return ImageVersion{}, ErrUnknownBlockType
	}
	versions, err := b.rawVersions()
	if err != nil {
		return ImageVersion{}, err
	}
	if len(versions) == 0 {
		return ImageVersion{}, ErrNoVersions
	}
	var pair []string
	if err := json.Unmarshal(versions[len(versions)-1], &pair); err != nil {
		return ImageVersion{}, ErrMalformedVersion
	}
	if len(pair) != 2 {
		return ImageVersion{}, ErrMalformedVersion
	}
	return ImageVersion{Key: pair[0], Title: pair[1]}, nil
}

// AppendVersion records a new value of the block. Following the append-only
// history law, nothing happens when both the value and the author equal the
// current ones.
func (b *ContentBlock) AppendVersion(value any, user string) error {
	versions, err := b.rawVersions()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	authors := decodeStrings(b.Authors)
	if len(versions) > 0 && len(authors) > 0 {
		if string(versions[len(versions)-1]) == string(encoded) && authors[len(authors)-1] == user {
			return nil
		}
	}

	versions = append(versions, json.RawMessage(encoded))
	b.Content = encodeJSON(versions)
	b.Dates = encodeJSON(append(decodeStrings(b.Dates), time.Now().UTC().Format(TimeLayout)))
	b.Authors = encodeJSON(append(authors, user))
	return nil
}

// Creation returns the creation stamp as a time, zero when unparseable.
func (b *ContentBlock) Creation() time.Time {
	t, err := time.Parse(TimeLayout, b.CreationTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

func CreateContentBlock(db *gorm.DB, block *ContentBlock) error {
	return db.Create(block).Error
}

func GetContentBlock(db *gorm.DB, entityID, blockID string) (*ContentBlock, error) {
	block := &ContentBlock{}
	err := db.Where("id = ? AND entity_id = ?", blockID, entityID).First(block).Error
	if err != nil {
		return nil, err
	}

	return block, nil
}

func UpdateContentBlock(db *gorm.DB, block *ContentBlock) error {
	return db.Save(block).Error
}

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Timestamp layout used across entities, content blocks and comments.
const TimeLayout = time.RFC3339Nano

// Entity types. Bucket and Instance live in the same table as regular
// notebook entities but never appear inside a notebook tree.
const (
	TypeLibrary  = "Library"
	TypeNotebook = "Notebook"
	TypeProject  = "Project"
	TypeTask     = "Task"
	TypeStep     = "Step"
	TypeBucket   = "Bucket"
	TypeInstance = "Instance"
)

// Entity is a node in the Library -> Notebook -> Project -> Task -> Step
// hierarchy. Children holds the ordered IDs of sub-entities only; content
// blocks hang off the entity through ContentBlocks. Order optionally pins
// the interleaving of both, as (id, kind) pairs.
type Entity struct {
	ID            string         `gorm:"primaryKey;uuid;not null" json:"ID"`
	Name          string         `gorm:"not null" json:"name"`
	PreviousNames datatypes.JSON `json:"previous_names,omitempty"`
	Type          string         `gorm:"not null;index" json:"type"`
	User          string         `json:"user"`
	Parent        string         `gorm:"uuid;index" json:"parent"`
	Children      datatypes.JSON `json:"children"`
	Order         datatypes.JSON `json:"order"`
	DataBuckets   datatypes.JSON `json:"data_buckets,omitempty"`
	Deleted       bool           `gorm:"index" json:"deleted"`
	Bookmarked    bool           `json:"bookmarked"`
	StartTime     string         `json:"start_time"`
	EndTime       string         `json:"end_time"`
	CreatedAt     time.Time      `json:"-"`
	UpdatedAt     time.Time      `json:"-"`

	// serialized with the entity so cache hits carry the full aggregate
	ContentBlocks []*ContentBlock `gorm:"foreignKey:EntityID;references:ID" json:"content_blocks,omitempty"`
	Comments      []*Comment      `gorm:"foreignKey:EntityID;references:ID" json:"comment_threads,omitempty"`
}

// OrderEntry is one element of an entity's explicit ordering. Kind is
// KindEntity or KindContentBlock.
type OrderEntry struct {
	ID   string
	Kind string
}

const (
	KindEntity       = "entity"
	KindContentBlock = "content_block"
)

// NewEntity creates an entity of the given type under parent. StartTime is
// stamped at creation, the same stamp the merge engine falls back on when
// interleaving by creation order.
func NewEntity(name, user, entityType, parent string) *Entity {
	now := time.Now().UTC().Format(TimeLayout)
	return &Entity{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      entityType,
		User:      user,
		Parent:    parent,
		StartTime: now,
		EndTime:   now,
	}
}

// ChildIDs decodes the ordered list of sub-entity IDs.
func (e *Entity) ChildIDs() []string {
	return decodeStrings(e.Children)
}

// SetChildIDs replaces the children list.
func (e *Entity) SetChildIDs(ids []string) {
	e.Children = encodeJSON(ids)
}

// AddChild appends a child ID and records it in the explicit order.
func (e *Entity) AddChild(id string) {
	e.SetChildIDs(append(e.ChildIDs(), id))
	e.AppendOrder(id, KindEntity)
}

// OrderEntries decodes the explicit (id, kind) ordering. Entries are stored
// as two-element arrays; anything else is skipped.
func (e *Entity) OrderEntries() []OrderEntry {
	if len(e.Order) == 0 {
		return nil
	}
	var raw [][]string
	if err := json.Unmarshal(e.Order, &raw); err != nil {
		logrus.Warnf("entity %s has a corrupted order column: %v", e.ID, err)
		return nil
	}
	entries := make([]OrderEntry, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		entries = append(entries, OrderEntry{ID: pair[0], Kind: pair[1]})
	}
	return entries
}

// AppendOrder records a new item at the end of the explicit ordering.
func (e *Entity) AppendOrder(id, kind string) {
	entries := e.OrderEntries()
	entries = append(entries, OrderEntry{ID: id, Kind: kind})
	raw := make([][]string, 0, len(entries))
	for _, entry := range entries {
		raw = append(raw, []string{entry.ID, entry.Kind})
	}
	e.Order = encodeJSON(raw)
}

// BucketIDs decodes the targeted data bucket IDs.
func (e *Entity) BucketIDs() []string {
	return decodeStrings(e.DataBuckets)
}

// SetBucketIDs replaces the targeted data bucket list.
func (e *Entity) SetBucketIDs(ids []string) {
	e.DataBuckets = encodeJSON(ids)
}

// Rename changes the entity name, keeping the old one in previous_names.
func (e *Entity) Rename(name string) {
	previous := decodeStrings(e.PreviousNames)
	previous = append(previous, e.Name)
	e.PreviousNames = encodeJSON(previous)
	e.Name = name
}

// Start returns the creation stamp as a time, or the zero time when the
// stamp is missing or unparseable.
func (e *Entity) Start() time.Time {
	if e.StartTime == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, e.StartTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

func CreateEntity(db *gorm.DB, entity *Entity) error {
	return db.Create(entity).Error
}

func GetEntity(db *gorm.DB, id string) (*Entity, error) {
	entity := &Entity{}
	err := db.Preload("ContentBlocks").Preload("Comments.Replies").Where("id = ?", id).First(entity).Error
	if err != nil {
		return nil, err
	}

	return entity, nil
}

func GetEntitiesByType(db *gorm.DB, entityType string) ([]*Entity, error) {
	entities := make([]*Entity, 0)
	err := db.Where("type = ? AND deleted = ?", entityType, false).Order("created_at").Find(&entities).Error
	if err != nil {
		return nil, err
	}

	return entities, nil
}

func UpdateEntity(db *gorm.DB, entity *Entity) error {
	return db.Save(entity).Error
}

func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		logrus.Warnf("corrupted string list column: %v", err)
		return nil
	}
	return out
}

func encodeJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		// only reachable with unmarshalable values, which none of the
		// callers construct
		logrus.Errorf("failed to encode json column: %v", err)
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

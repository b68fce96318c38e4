package model

import (
	"encoding/json"
	"fmt"
)

// WireEntity is the shape an entity travels in over the REST surface.
// Content blocks ride in the comments field as individually serialized JSON
// strings; the naming is historical, those are the entity's own blocks, not
// discussion comments.
type WireEntity struct {
	ID            string     `json:"ID"`
	Name          string     `json:"name"`
	PreviousNames []string   `json:"previous_names"`
	Type          string     `json:"type"`
	User          string     `json:"user"`
	Parent        string     `json:"parent"`
	Children      []string   `json:"children"`
	Comments      []string   `json:"comments"`
	Order         [][]string `json:"order"`
	DataBuckets   []string   `json:"data_buckets"`
	Deleted       bool       `json:"deleted"`
	Bookmarked    bool       `json:"bookmarked"`
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
}

// Wire converts the entity, with its loaded content blocks, into the wire
// shape. Deleted blocks are included; filtering is the merge engine's job
// on the consuming side.
func (e *Entity) Wire() *WireEntity {
	comments := make([]string, 0, len(e.ContentBlocks))
	for _, block := range e.ContentBlocks {
		raw, err := json.Marshal(block)
		if err != nil {
			continue
		}
		comments = append(comments, string(raw))
	}

	order := make([][]string, 0)
	for _, entry := range e.OrderEntries() {
		order = append(order, []string{entry.ID, entry.Kind})
	}

	children := e.ChildIDs()
	if children == nil {
		children = []string{}
	}
	buckets := e.BucketIDs()
	if buckets == nil {
		buckets = []string{}
	}
	previous := decodeStrings(e.PreviousNames)
	if previous == nil {
		previous = []string{}
	}

	return &WireEntity{
		ID:            e.ID,
		Name:          e.Name,
		PreviousNames: previous,
		Type:          e.Type,
		User:          e.User,
		Parent:        e.Parent,
		Children:      children,
		Comments:      comments,
		Order:         order,
		DataBuckets:   buckets,
		Deleted:       e.Deleted,
		Bookmarked:    e.Bookmarked,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
	}
}

// FromWire rebuilds an entity from the wire shape, deserializing the
// content blocks carried in comments. A block string that does not parse
// becomes a placeholder with an undecodable content column, which the merge
// engine flags as malformed instead of dropping.
func FromWire(w *WireEntity) *Entity {
	entity := &Entity{
		ID:            w.ID,
		Name:          w.Name,
		PreviousNames: encodeJSON(w.PreviousNames),
		Type:          w.Type,
		User:          w.User,
		Parent:        w.Parent,
		Children:      encodeJSON(w.Children),
		DataBuckets:   encodeJSON(w.DataBuckets),
		Deleted:       w.Deleted,
		Bookmarked:    w.Bookmarked,
		StartTime:     w.StartTime,
		EndTime:       w.EndTime,
	}
	if len(w.Order) > 0 {
		entity.Order = encodeJSON(w.Order)
	}

	for i, raw := range w.Comments {
		block := &ContentBlock{}
		if err := json.Unmarshal([]byte(raw), block); err != nil || block.ID == "" {
			block = &ContentBlock{
				ID:       fmt.Sprintf("%s:undecodable:%d", w.ID, i),
				EntityID: w.ID,
				Content:  []byte(raw),
			}
		}
		block.EntityID = w.ID
		entity.ContentBlocks = append(entity.ContentBlocks, block)
	}

	return entity
}

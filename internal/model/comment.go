package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Comment is a discussion comment attached to an entity, or to one of its
// content blocks through Target. Distinct from content blocks despite the
// original wire format calling those "comments" too.
type Comment struct {
	ID           string    `gorm:"primaryKey;uuid;not null" json:"ID"`
	EntityID     string    `gorm:"uuid;not null;index" json:"parent"`
	Target       string    `gorm:"uuid" json:"target"`
	CreationUser string    `json:"creation_user"`
	CreationTime string    `json:"creation_time"`
	Body         string    `json:"body"`
	Deleted      bool      `json:"deleted"`
	Resolved     bool      `json:"resolved"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`

	Replies []*Reply `gorm:"foreignKey:CommentID;references:ID" json:"replies"`
}

// Reply belongs to a comment. User, Body and Timestamps are parallel lists
// in the order edits happened; the last user is the most recent replier.
type Reply struct {
	ID         string         `gorm:"primaryKey;uuid;not null" json:"ID"`
	CommentID  string         `gorm:"uuid;not null;index" json:"-"`
	User       datatypes.JSON `json:"user"`
	Body       datatypes.JSON `json:"body"`
	Timestamps datatypes.JSON `json:"timestamp"`
	CreatedAt  time.Time      `json:"-"`
}

// NewComment creates a comment on the entity, optionally targeting one of
// its content blocks.
func NewComment(entityID, target, user, body string) *Comment {
	return &Comment{
		ID:           uuid.New().String(),
		EntityID:     entityID,
		Target:       target,
		CreationUser: user,
		CreationTime: time.Now().UTC().Format(TimeLayout),
		Body:         body,
		Replies:      []*Reply{},
	}
}

// AddReply appends a reply authored by user.
func (c *Comment) AddReply(user, body string) *Reply {
	reply := &Reply{
		ID:         uuid.New().String(),
		CommentID:  c.ID,
		User:       encodeJSON([]string{user}),
		Body:       encodeJSON([]string{body}),
		Timestamps: encodeJSON([]string{time.Now().UTC().Format(TimeLayout)}),
	}
	c.Replies = append(c.Replies, reply)
	return reply
}

func CreateComment(db *gorm.DB, comment *Comment) error {
	return db.Create(comment).Error
}

func GetComment(db *gorm.DB, entityID, commentID string) (*Comment, error) {
	comment := &Comment{}
	err := db.Preload("Replies").Where("id = ? AND entity_id = ?", commentID, entityID).First(comment).Error
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// UpdateComment saves the comment together with any new replies.
func UpdateComment(db *gorm.DB, comment *Comment) error {
	return db.Session(&gorm.Session{FullSaveAssociations: true}).Save(comment).Error
}

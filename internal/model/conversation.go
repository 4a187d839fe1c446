package model

import (
	"encoding/json"
	"time"
)

// Conversation is an append-only log row feeding IntentParser context.
type Conversation struct {
	ID           uint `gorm:"primaryKey;autoIncrement"`
	UserID       string
	Message      string
	Response     string
	Intent       string
	EntitiesJSON string `gorm:"column:entities;type:text"`
	CreatedAt    time.Time
}

func (Conversation) TableName() string { return "conversations" }

func (c *Conversation) SetEntities(e map[string]interface{}) {
	b, _ := json.Marshal(e)
	c.EntitiesJSON = string(b)
}

func (c *Conversation) Entities() map[string]interface{} {
	if c.EntitiesJSON == "" {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	_ = json.Unmarshal([]byte(c.EntitiesJSON), &m)
	return m
}

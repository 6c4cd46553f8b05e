package models

import (
	"sort"
	"time"
)

// Conversation is one chat history entry. LastModified is epoch
// milliseconds, matching the wire format of the web client it replaces.
type Conversation struct {
	ID           string `gorm:"primaryKey;size:64" json:"id"`
	Name         string `gorm:"size:255;not null" json:"name"`
	LastModified int64  `gorm:"not null;index" json:"lastModified"`
}

// ChatMessage is a single user/assistant exchange inside a conversation.
type ChatMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"size:64;not null;index" json:"conversationId"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationGroup is one labeled sidebar bucket. The "Today" bucket
// carries no title.
type ConversationGroup struct {
	Title         string         `json:"title,omitempty"`
	Conversations []Conversation `json:"conversations"`
}

// GroupConversationsByDate partitions conversations into date buckets:
// Today (untitled), "Previous 7 Days", "Previous 30 Days", then one bucket
// per "Month Year" ordered most recent month first. Entries are sorted
// newest first within each bucket and empty buckets are never emitted.
// Boundaries are computed from now in its own location.
func GroupConversationsByDate(now time.Time, conversations []Conversation) []ConversationGroup {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sevenDaysAgo := today.AddDate(0, 0, -7)
	thirtyDaysAgo := today.AddDate(0, 0, -30)

	sorted := make([]Conversation, len(conversations))
	copy(sorted, conversations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastModified > sorted[j].LastModified
	})

	var todayConvs, weekConvs, monthConvs []Conversation
	monthly := map[string][]Conversation{}
	monthStart := map[string]time.Time{}

	for _, conv := range sorted {
		convDate := time.UnixMilli(conv.LastModified).In(now.Location())
		switch {
		case !convDate.Before(today):
			todayConvs = append(todayConvs, conv)
		case !convDate.Before(sevenDaysAgo):
			weekConvs = append(weekConvs, conv)
		case !convDate.Before(thirtyDaysAgo):
			monthConvs = append(monthConvs, conv)
		default:
			key := convDate.Format("January 2006")
			monthly[key] = append(monthly[key], conv)
			if _, ok := monthStart[key]; !ok {
				monthStart[key] = time.Date(convDate.Year(), convDate.Month(), 1, 0, 0, 0, 0, now.Location())
			}
		}
	}

	var result []ConversationGroup
	if len(todayConvs) > 0 {
		result = append(result, ConversationGroup{Conversations: todayConvs})
	}
	if len(weekConvs) > 0 {
		result = append(result, ConversationGroup{Title: "Previous 7 Days", Conversations: weekConvs})
	}
	if len(monthConvs) > 0 {
		result = append(result, ConversationGroup{Title: "Previous 30 Days", Conversations: monthConvs})
	}

	monthKeys := make([]string, 0, len(monthly))
	for key := range monthly {
		monthKeys = append(monthKeys, key)
	}
	sort.Slice(monthKeys, func(i, j int) bool {
		return monthStart[monthKeys[i]].After(monthStart[monthKeys[j]])
	})
	for _, key := range monthKeys {
		result = append(result, ConversationGroup{Title: key, Conversations: monthly[key]})
	}
	return result
}

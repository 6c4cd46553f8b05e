package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragdesk/internal/models"
	"ragdesk/internal/repositories"
)

// HistoryService owns local conversation history. Grouping is a pure
// function over the summaries; everything else is plain CRUD on the store.
type HistoryService interface {
	List() ([]models.Conversation, error)
	Grouped(now time.Time) ([]models.ConversationGroup, error)
	Get(id string) (*models.Conversation, error)
	Create(name string) (*models.Conversation, error)
	Rename(id, name string) error
	Delete(id string) error
	AppendMessage(conversationID, role, content string) error
	Messages(conversationID string) ([]models.ChatMessage, error)
	Export(id string) ([]byte, error)
}

type historyService struct {
	repo repositories.ConversationRepository
}

func NewHistoryService(repo repositories.ConversationRepository) HistoryService {
	return &historyService{repo: repo}
}

func (s *historyService) List() ([]models.Conversation, error) {
	return s.repo.List()
}

func (s *historyService) Grouped(now time.Time) ([]models.ConversationGroup, error) {
	convs, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	return models.GroupConversationsByDate(now, convs), nil
}

func (s *historyService) Get(id string) (*models.Conversation, error) {
	if id == "" {
		return nil, fmt.Errorf("conversation ID is required")
	}
	return s.repo.Get(id)
}

func (s *historyService) Create(name string) (*models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "New Conversation"
	}
	conv := &models.Conversation{
		ID:           uuid.NewString(),
		Name:         name,
		LastModified: time.Now().UnixMilli(),
	}
	if err := s.repo.Create(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *historyService) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("a non-empty name is required")
	}
	conv, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", id)
	}
	return s.repo.Rename(id, name)
}

func (s *historyService) Delete(id string) error {
	conv, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", id)
	}
	return s.repo.Delete(id)
}

// AppendMessage records one exchange and bumps the conversation's
// last-modified stamp so grouping reflects recency.
func (s *historyService) AppendMessage(conversationID, role, content string) error {
	conv, err := s.repo.Get(conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	if err := s.repo.AppendMessage(&models.ChatMessage{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}); err != nil {
		return err
	}
	return s.repo.Touch(conversationID, time.Now().UnixMilli())
}

// Messages returns a conversation's messages in insertion order.
func (s *historyService) Messages(conversationID string) ([]models.ChatMessage, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation ID is required")
	}
	return s.repo.ListMessages(conversationID)
}

// Export renders a conversation with its messages as indented JSON, the
// same shape the browser client downloads.
func (s *historyService) Export(id string) ([]byte, error) {
	conv, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	msgs, err := s.repo.ListMessages(id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(struct {
		models.Conversation
		Messages []models.ChatMessage `json:"messages"`
	}{Conversation: *conv, Messages: msgs}, "", "  ")
}

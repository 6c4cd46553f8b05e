package mocks

import (
	"ragdesk/internal/models"
)

type ConversationRepositoryMock struct {
	ListFunc          func() ([]models.Conversation, error)
	GetFunc           func(id string) (*models.Conversation, error)
	CreateFunc        func(conv *models.Conversation) error
	RenameFunc        func(id, name string) error
	TouchFunc         func(id string, lastModified int64) error
	DeleteFunc        func(id string) error
	ListMessagesFunc  func(conversationID string) ([]models.ChatMessage, error)
	AppendMessageFunc func(msg *models.ChatMessage) error
}

func (m *ConversationRepositoryMock) List() ([]models.Conversation, error) {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return []models.Conversation{}, nil
}

func (m *ConversationRepositoryMock) Get(id string) (*models.Conversation, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return nil, nil
}

func (m *ConversationRepositoryMock) Create(conv *models.Conversation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(conv)
	}
	return nil
}

func (m *ConversationRepositoryMock) Rename(id, name string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(id, name)
	}
	return nil
}

func (m *ConversationRepositoryMock) Touch(id string, lastModified int64) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(id, lastModified)
	}
	return nil
}

func (m *ConversationRepositoryMock) Delete(id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return nil
}

func (m *ConversationRepositoryMock) ListMessages(conversationID string) ([]models.ChatMessage, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(conversationID)
	}
	return []models.ChatMessage{}, nil
}

func (m *ConversationRepositoryMock) AppendMessage(msg *models.ChatMessage) error {
	if m.AppendMessageFunc != nil {
		return m.AppendMessageFunc(msg)
	}
	return nil
}

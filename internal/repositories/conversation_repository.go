package repositories

import (
	"errors"

	"gorm.io/gorm"

	"ragdesk/internal/models"
)

type ConversationRepository interface {
	List() ([]models.Conversation, error)
	Get(id string) (*models.Conversation, error)
	Create(conv *models.Conversation) error
	Rename(id, name string) error
	Touch(id string, lastModified int64) error
	Delete(id string) error
	ListMessages(conversationID string) ([]models.ChatMessage, error)
	AppendMessage(msg *models.ChatMessage) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) List() ([]models.Conversation, error) {
	var convs []models.Conversation
	res := r.db.Order("last_modified desc").Find(&convs)
	if res.Error != nil {
		return nil, res.Error
	}
	return convs, nil
}

func (r *conversationRepository) Get(id string) (*models.Conversation, error) {
	var conv models.Conversation
	res := r.db.Take(&conv, "id = ?", id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &conv, nil
}

func (r *conversationRepository) Create(conv *models.Conversation) error {
	return r.db.Create(conv).Error
}

func (r *conversationRepository) Rename(id, name string) error {
	return r.db.Model(&models.Conversation{}).Where("id = ?", id).Update("name", name).Error
}

func (r *conversationRepository) Touch(id string, lastModified int64) error {
	return r.db.Model(&models.Conversation{}).Where("id = ?", id).Update("last_modified", lastModified).Error
}

func (r *conversationRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Conversation{}, "id = ?", id).Error
	})
}

func (r *conversationRepository) ListMessages(conversationID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	res := r.db.Where("conversation_id = ?", conversationID).Order("id asc").Find(&msgs)
	if res.Error != nil {
		return nil, res.Error
	}
	return msgs, nil
}

func (r *conversationRepository) AppendMessage(msg *models.ChatMessage) error {
	return r.db.Create(msg).Error
}

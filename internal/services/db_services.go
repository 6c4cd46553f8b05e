package services

import (
	"gorm.io/gorm"

	"ragdesk/internal/repositories"
)

// DbServices aggregates the services backed by the database.
type DbServices struct {
	History HistoryService
}

// NewDbServices constructs the service container using repositories backed by db.
func NewDbServices(db *gorm.DB) *DbServices {
	convRepo := repositories.NewConversationRepository(db)

	return &DbServices{
		History: NewHistoryService(convRepo),
	}
}

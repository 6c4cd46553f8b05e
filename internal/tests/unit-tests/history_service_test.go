package unit_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ragdesk/internal/models"
	"ragdesk/internal/services"
	"ragdesk/internal/tests/mocks"
)

func TestHistoryService_Grouped_BucketsAndOrder(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	at := func(daysAgo int, hour int) int64 {
		return now.AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour).Add(time.Duration(hour) * time.Hour).UnixMilli()
	}

	mockRepo := &mocks.ConversationRepositoryMock{
		ListFunc: func() ([]models.Conversation, error) {
			return []models.Conversation{
				{ID: "w1", Name: "three days ago", LastModified: at(3, 9)},
				{ID: "t1", Name: "this morning", LastModified: at(0, 8)},
				{ID: "o1", Name: "last december", LastModified: at(100, 9)},
				{ID: "m1", Name: "twenty days ago", LastModified: at(20, 9)},
				{ID: "t2", Name: "today noon", LastModified: at(0, 11)},
				{ID: "o2", Name: "mid february", LastModified: at(35, 9)},
			}, nil
		},
	}
	service := services.NewHistoryService(mockRepo)

	groups, err := service.Grouped(now)
	assert.NoError(t, err)
	assert.Len(t, groups, 5)

	// Today carries no title and lists newest first.
	assert.Equal(t, "", groups[0].Title)
	assert.Equal(t, []string{"t2", "t1"}, idsOf(groups[0].Conversations))

	assert.Equal(t, "Previous 7 Days", groups[1].Title)
	assert.Equal(t, []string{"w1"}, idsOf(groups[1].Conversations))

	assert.Equal(t, "Previous 30 Days", groups[2].Title)
	assert.Equal(t, []string{"m1"}, idsOf(groups[2].Conversations))

	// Monthly buckets run most recent month first.
	assert.Equal(t, "February 2025", groups[3].Title)
	assert.Equal(t, []string{"o2"}, idsOf(groups[3].Conversations))
	assert.Equal(t, "December 2024", groups[4].Title)
	assert.Equal(t, []string{"o1"}, idsOf(groups[4].Conversations))
}

func TestHistoryService_Grouped_OmitsEmptyBuckets(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	mockRepo := &mocks.ConversationRepositoryMock{
		ListFunc: func() ([]models.Conversation, error) {
			return []models.Conversation{
				{ID: "m1", Name: "twenty days ago", LastModified: now.AddDate(0, 0, -20).UnixMilli()},
			}, nil
		},
	}
	service := services.NewHistoryService(mockRepo)

	groups, err := service.Grouped(now)
	assert.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.Equal(t, "Previous 30 Days", groups[0].Title)
}

func TestHistoryService_Create_DefaultsName(t *testing.T) {
	var created *models.Conversation
	mockRepo := &mocks.ConversationRepositoryMock{
		CreateFunc: func(conv *models.Conversation) error {
			created = conv
			return nil
		},
	}
	service := services.NewHistoryService(mockRepo)

	conv, err := service.Create("   ")
	assert.NoError(t, err)
	assert.Equal(t, "New Conversation", conv.Name)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, created, conv)
}

func TestHistoryService_Rename_RequiresExistingConversation(t *testing.T) {
	mockRepo := &mocks.ConversationRepositoryMock{}
	service := services.NewHistoryService(mockRepo)

	err := service.Rename("missing", "new name")
	assert.Error(t, err)
	assert.Equal(t, "conversation missing not found", err.Error())
}

func TestHistoryService_AppendMessage_TouchesConversation(t *testing.T) {
	touched := false
	var appended *models.ChatMessage
	mockRepo := &mocks.ConversationRepositoryMock{
		GetFunc: func(id string) (*models.Conversation, error) {
			return &models.Conversation{ID: id, Name: "chat"}, nil
		},
		AppendMessageFunc: func(msg *models.ChatMessage) error {
			appended = msg
			return nil
		},
		TouchFunc: func(id string, lastModified int64) error {
			touched = true
			assert.Equal(t, "c1", id)
			assert.Greater(t, lastModified, int64(0))
			return nil
		},
	}
	service := services.NewHistoryService(mockRepo)

	err := service.AppendMessage("c1", "user", "hello")
	assert.NoError(t, err)
	assert.True(t, touched)
	assert.Equal(t, "user", appended.Role)
	assert.Equal(t, "hello", appended.Content)
}

func idsOf(conversations []models.Conversation) []string {
	ids := make([]string, 0, len(conversations))
	for _, conv := range conversations {
		ids = append(ids, conv.ID)
	}
	return ids
}

package model

import (
	"encoding/json"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"

	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// RandomJSONB generates random JSON data for testing.
func RandomJSONB() datatypes.JSON {
	jsonData := map[string]interface{}{
		"stub_key": gofakeit.Word(),
		"stub_num": gofakeit.Number(1, 100),
	}
	bytes, _ := json.Marshal(jsonData)
	return datatypes.JSON(bytes)
}

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewClient creates a new Client instance with default fake data.
func NewClient(overrideDefaults ...*Client) *Client {
	base := &Client{
		ID:                    gofakeit.UUID(),
		Name:                  gofakeit.Name(),
		PhoneNumber:           gofakeit.Phone(),
		Email:                 gofakeit.Email(),
		Status:                gofakeit.RandomString([]string{ClientStatusProspect, ClientStatusActive, ClientStatusVIP}),
		Priority:              gofakeit.RandomString([]string{"LOW", "MEDIUM", "HIGH"}),
		LeadScore:             gofakeit.Number(0, 100),
		ConversionProbability: gofakeit.Float64Range(0, 1),
		Budget:                gofakeit.RandomString([]string{"<10k", "10k-50k", "50k-250k", ">250k"}),
		Timeframe:             gofakeit.RandomString([]string{"immediate", "this_quarter", "this_year"}),
		Origin:                gofakeit.RandomString([]string{"manual", "import", "whatsapp"}),
		CreatedAt:             utils.Now().Add(-time.Duration(gofakeit.Number(1, 200)) * time.Hour),
		UpdatedAt:             utils.Now(),
		Metadata:              RandomJSONB(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.PhoneNumber != "" {
			base.PhoneNumber = ovr.PhoneNumber
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.LeadScore != 0 {
			base.LeadScore = ovr.LeadScore
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
	}
	return base
}

// NewFollowUp creates a new FollowUp instance with default fake data.
func NewFollowUp(overrideDefaults ...*FollowUp) *FollowUp {
	base := &FollowUp{
		ID:            gofakeit.UUID(),
		ClientID:      gofakeit.UUID(),
		Type:          gofakeit.RandomString([]string{FollowUpTypeReminder, FollowUpTypeCall, FollowUpTypeEmail, FollowUpTypeMeeting, FollowUpTypeTask}),
		Title:         gofakeit.Sentence(4),
		Description:   gofakeit.Sentence(8),
		ScheduledFor:  utils.Now().Add(time.Duration(gofakeit.Number(-48, 48)) * time.Hour),
		Priority:      gofakeit.RandomString([]string{"LOW", "MEDIUM", "HIGH"}),
		ReminderState: ReminderStatePending,
		Channel:       "whatsapp",
		Metadata:      RandomJSONB(),
		CreatedAt:     utils.Now(),
		UpdatedAt:     utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.ClientID != "" {
			base.ClientID = ovr.ClientID
		}
		if ovr.Title != "" {
			base.Title = ovr.Title
		}
		if ovr.ReminderState != "" {
			base.ReminderState = ovr.ReminderState
		}
		if !ovr.ScheduledFor.IsZero() {
			base.ScheduledFor = ovr.ScheduledFor
		}
		base.Completed = ovr.Completed
		if ovr.CompletedAt != nil {
			base.CompletedAt = ovr.CompletedAt
		}
	}
	return base
}

// NewConversation creates a new Conversation instance with default fake data.
func NewConversation(overrideDefaults ...*Conversation) *Conversation {
	last := utils.Now().Add(-time.Duration(gofakeit.Number(1, 72)) * time.Hour)
	base := &Conversation{
		ID:            gofakeit.UUID(),
		ClientID:      gofakeit.UUID(),
		Status:        ConversationStatusActive,
		Channel:       "whatsapp",
		MessageCount:  gofakeit.Number(1, 50),
		LastMessageAt: &last,
		CreatedAt:     last.Add(-time.Hour),
		UpdatedAt:     utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.ClientID != "" {
			base.ClientID = ovr.ClientID
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.LastMessageAt != nil {
			base.LastMessageAt = ovr.LastMessageAt
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if ovr.MessageCount != 0 {
			base.MessageCount = ovr.MessageCount
		}
	}
	return base
}

// NewMessage creates a new Message instance with default fake data.
func NewMessage(overrideDefaults ...*Message) *Message {
	base := &Message{
		MessageID:        gofakeit.UUID(),
		ConversationID:   gofakeit.UUID(),
		ClientID:         gofakeit.UUID(),
		Direction:        gofakeit.RandomString([]string{DirectionIncoming, DirectionOutgoing}),
		Body:             gofakeit.Sentence(10),
		MessageTimestamp: utils.Now().Add(-time.Duration(gofakeit.Number(0, 72)) * time.Hour),
		CreatedAt:        utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.MessageID != "" {
			base.MessageID = ovr.MessageID
		}
		if ovr.ConversationID != "" {
			base.ConversationID = ovr.ConversationID
		}
		if ovr.Direction != "" {
			base.Direction = ovr.Direction
		}
		if !ovr.MessageTimestamp.IsZero() {
			base.MessageTimestamp = ovr.MessageTimestamp
		}
		if ovr.SentimentScore != nil {
			base.SentimentScore = ovr.SentimentScore
		}
	}
	return base
}

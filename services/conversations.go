package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/SubletMatch/SubletMatch/models"
)

type Participant struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Conversation is a derived view, not a stored entity: it is recomputed from
// the message log on every call and identified by listing + counterparty.
type Conversation struct {
	ID             string         `json:"id"`
	ListingID      uuid.UUID      `json:"listingId"`
	ListingTitle   string         `json:"listingTitle"`
	ListingOwnerID uuid.UUID      `json:"listingOwnerId"`
	Participants   []Participant  `json:"participants"`
	LastMessage    models.Message `json:"lastMessage"`
	// UnreadCount is part of the wire shape but read receipts are not
	// tracked, so it is always zero.
	UnreadCount int `json:"unreadCount"`
}

type ConversationService struct {
	db *gorm.DB
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db}
}

// Counterparty resolves the other side of a conversation. Grouping is
// ownership-asymmetric: for the listing owner the counterparty is whichever
// message endpoint is not the owner (the inquirer); for everyone else it is
// always the listing owner, which merges all of a user's inquiries about one
// listing into a single thread.
func Counterparty(requester, owner, sender, receiver uuid.UUID) uuid.UUID {
	if requester == owner {
		if sender == requester {
			return receiver
		}
		return sender
	}
	return owner
}

// ConversationKey builds the stable identity of a derived conversation.
func ConversationKey(listingID, counterpartyID uuid.UUID) string {
	return fmt.Sprintf("%s_%s", listingID, counterpartyID)
}

// ConversationsForUser scans the user's message log newest-first and emits one
// conversation per distinct (listing, counterparty) pair. Because the scan is
// newest-first, the first message seen for a key is that conversation's most
// recent message, and keys surface in order of last activity. Messages whose
// listing or counterparty cannot be resolved are logged and skipped; they
// never fail the whole request.
func (s *ConversationService) ConversationsForUser(userID uuid.UUID) ([]Conversation, error) {
	var messages []models.Message
	if err := s.db.
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("timestamp DESC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	conversations := []Conversation{}
	if len(messages) == 0 {
		return conversations, nil
	}

	listingCache := map[uuid.UUID]*models.Listing{}
	userCache := map[uuid.UUID]*models.User{}

	requester := s.cachedUser(userCache, userID)
	if requester == nil {
		log.Warn().Str("userID", userID.String()).Msg("conversations requested for unknown user")
		return conversations, nil
	}

	seen := map[string]bool{}
	for _, msg := range messages {
		listing := s.cachedListing(listingCache, msg.ListingID)
		if listing == nil {
			log.Warn().
				Str("messageID", msg.ID.String()).
				Str("listingID", msg.ListingID.String()).
				Msg("skipping message with unresolvable listing")
			continue
		}

		counterpartyID := Counterparty(userID, listing.UserID, msg.SenderID, msg.ReceiverID)
		key := ConversationKey(listing.ID, counterpartyID)
		if seen[key] {
			continue
		}

		counterparty := s.cachedUser(userCache, counterpartyID)
		if counterparty == nil {
			log.Warn().
				Str("messageID", msg.ID.String()).
				Str("counterpartyID", counterpartyID.String()).
				Msg("skipping message with unresolvable counterparty")
			continue
		}

		seen[key] = true
		conversations = append(conversations, Conversation{
			ID:             key,
			ListingID:      listing.ID,
			ListingTitle:   listing.Title,
			ListingOwnerID: listing.UserID,
			Participants: []Participant{
				{ID: requester.ID, Name: requester.DisplayName()},
				{ID: counterparty.ID, Name: counterparty.DisplayName()},
			},
			LastMessage: msg,
			UnreadCount: 0,
		})
	}

	return conversations, nil
}

// Thread returns every message between exactly two users about one listing,
// oldest-first. Pure filter and sort, no aggregation.
func (s *ConversationService) Thread(listingID, userA, userB uuid.UUID) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.db.
		Where("listing_id = ?", listingID).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("timestamp ASC").
		Find(&messages).Error
	return messages, err
}

func (s *ConversationService) cachedListing(cache map[uuid.UUID]*models.Listing, id uuid.UUID) *models.Listing {
	if listing, ok := cache[id]; ok {
		return listing
	}

	var listing models.Listing
	result := s.db.Where("id = ?", id).Limit(1).Find(&listing)
	if result.Error != nil || result.RowsAffected == 0 {
		cache[id] = nil
		return nil
	}

	cache[id] = &listing
	return &listing
}

func (s *ConversationService) cachedUser(cache map[uuid.UUID]*models.User, id uuid.UUID) *models.User {
	if user, ok := cache[id]; ok {
		return user
	}

	var user models.User
	result := s.db.Where("id = ?", id).Limit(1).Find(&user)
	if result.Error != nil || result.RowsAffected == 0 {
		cache[id] = nil
		return nil
	}

	cache[id] = &user
	return &user
}

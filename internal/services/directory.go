package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"relaychat/internal/database"
	"relaychat/internal/models"
)

// Directory manages conversation creation and membership. Direct
// conversations are deduplicated: at most one non-group conversation
// exists per unordered user pair.
type Directory struct {
	db  *database.Database
	log zerolog.Logger

	// pairLocks serializes the find-or-create sequence per user pair so
	// two concurrent callers cannot both miss the lookup and insert
	// duplicate direct conversations.
	mu        sync.Mutex
	pairLocks map[string]*sync.Mutex
}

func NewDirectory(db *database.Database, log zerolog.Logger) *Directory {
	return &Directory{
		db:        db,
		log:       log.With().Str("component", "directory").Logger(),
		pairLocks: make(map[string]*sync.Mutex),
	}
}

type ParticipantInfo struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar,omitempty"`
}

type LastMessage struct {
	ID         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	SenderID   uuid.UUID `json:"senderId"`
	SenderName string    `json:"senderName"`
	SentAt     time.Time `json:"sentAt"`
}

type ConversationSummary struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	IsGroup      bool              `json:"isGroup"`
	Participants []ParticipantInfo `json:"participants"`
	LastMessage  *LastMessage      `json:"lastMessage"`
	CreatedAt    time.Time         `json:"createdAt"`
}

func pairKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	if strings.Compare(ids[0], ids[1]) > 0 {
		ids[0], ids[1] = ids[1], ids[0]
	}
	return ids[0] + ":" + ids[1]
}

func (dir *Directory) lockPair(a, b uuid.UUID) func() {
	key := pairKey(a, b)

	dir.mu.Lock()
	l, ok := dir.pairLocks[key]
	if !ok {
		l = &sync.Mutex{}
		dir.pairLocks[key] = l
	}
	dir.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CreateOrReuseDirect returns the direct conversation between the two
// users, creating it when none exists. The existed flag reports which
// path was taken.
func (dir *Directory) CreateOrReuseDirect(requesterID, otherUserID uuid.UUID) (*models.Conversation, bool, error) {
	if requesterID == otherUserID {
		return nil, false, fmt.Errorf("%w: cannot start a direct conversation with yourself", ErrInvalidArgument)
	}

	unlock := dir.lockPair(requesterID, otherUserID)
	defer unlock()

	conv, err := dir.db.FindDirectConversation(requesterID, otherUserID)
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find direct conversation: %w", err)
	}

	conv, err = dir.db.CreateDirectConversation(requesterID, otherUserID)
	if err != nil {
		return nil, false, fmt.Errorf("create direct conversation: %w", err)
	}

	dir.log.Debug().
		Str("conversation_id", conv.ID.String()).
		Msg("direct conversation created")

	return conv, false, nil
}

// CreateGroup creates a named group conversation containing the
// requester and every member id. Group creation is never deduplicated.
func (dir *Directory) CreateGroup(requesterID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Conversation, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: group conversations require a name", ErrInvalidArgument)
	}

	members := lo.Uniq(append([]uuid.UUID{requesterID}, memberIDs...))

	conv, err := dir.db.CreateGroupConversation(name, members)
	if err != nil {
		return nil, fmt.Errorf("create group conversation: %w", err)
	}

	dir.log.Debug().
		Str("conversation_id", conv.ID.String()).
		Int("members", len(members)).
		Msg("group conversation created")

	return conv, nil
}

// AddParticipants adds the given users to a group conversation the
// requester belongs to. Users who are already members are skipped; the
// returned count covers only actual inserts.
func (dir *Directory) AddParticipants(conversationID, requesterID uuid.UUID, userIDs []uuid.UUID) (int, error) {
	conv, err := dir.getConversation(conversationID)
	if err != nil {
		return 0, err
	}
	if !conv.IsGroup {
		return 0, fmt.Errorf("%w: can only add participants to group conversations", ErrInvalidArgument)
	}

	isMember, err := dir.db.IsParticipant(conversationID, requesterID)
	if err != nil {
		return 0, err
	}
	if !isMember {
		return 0, fmt.Errorf("%w: requester is not a participant", ErrForbidden)
	}

	// One statement for the whole batch: existing memberships become
	// conflicts and are skipped, never partial inserts or errors.
	added, err := dir.db.AddParticipants(conversationID, lo.Uniq(userIDs))
	if err != nil {
		return 0, fmt.Errorf("add participants: %w", err)
	}
	return added, nil
}

// RemoveParticipant removes a user from a group conversation. The
// requester only needs to be a current member; there is no owner or
// admin standing, so any member may remove any other member.
func (dir *Directory) RemoveParticipant(conversationID, requesterID, targetUserID uuid.UUID) error {
	conv, err := dir.getConversation(conversationID)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return fmt.Errorf("%w: can only remove participants from group conversations", ErrInvalidArgument)
	}

	isMember, err := dir.db.IsParticipant(conversationID, requesterID)
	if err != nil {
		return err
	}
	if !isMember {
		return fmt.Errorf("%w: requester is not a participant", ErrForbidden)
	}

	return dir.db.RemoveParticipant(conversationID, targetUserID)
}

// ListForUser builds summaries for every conversation the user belongs
// to: resolved display name, hydrated participant list and the most
// recent message. No particular order is guaranteed.
func (dir *Directory) ListForUser(userID uuid.UUID) ([]ConversationSummary, error) {
	convs, err := dir.db.GetUserConversations(userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		participants, err := dir.db.GetParticipants(conv.ID)
		if err != nil {
			return nil, err
		}

		infos := lo.Map(participants, func(p models.Participant, _ int) ParticipantInfo {
			return ParticipantInfo{
				ID:         p.ID,
				UserID:     p.UserID,
				UserName:   p.User.Name,
				UserAvatar: p.User.AvatarURL,
			}
		})

		displayName := conv.Name
		if !conv.IsGroup {
			// Direct conversations show the counterpart's name.
			other, found := lo.Find(infos, func(p ParticipantInfo) bool {
				return p.UserID != userID
			})
			if found {
				displayName = other.UserName
			} else {
				displayName = "Unknown User"
			}
		}

		var last *LastMessage
		msg, err := dir.db.GetLastMessage(conv.ID)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			last = &LastMessage{
				ID:         msg.ID,
				Content:    msg.Content,
				SenderID:   msg.SenderID,
				SenderName: msg.Sender.Name,
				SentAt:     msg.SentAt,
			}
		}

		summaries = append(summaries, ConversationSummary{
			ID:           conv.ID,
			Name:         displayName,
			IsGroup:      conv.IsGroup,
			Participants: infos,
			LastMessage:  last,
			CreatedAt:    conv.CreatedAt,
		})
	}

	return summaries, nil
}

func (dir *Directory) getConversation(id uuid.UUID) (*models.Conversation, error) {
	conv, err := dir.db.GetConversation(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: conversation does not exist", ErrNotFound)
		}
		return nil, err
	}
	return conv, nil
}

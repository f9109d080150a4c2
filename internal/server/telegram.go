package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/elliehq/issue-relay/internal/biz/domain"
	"github.com/elliehq/issue-relay/internal/service"
)

// TelegramServer bridges Telegram updates into the relay pipeline
type TelegramServer struct {
	bot *telego.Bot
	svc *service.RelayService
}

// NewTelegramServer creates the Telegram adapter
func NewTelegramServer(token string, svc *service.RelayService) (*TelegramServer, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramServer{bot: bot, svc: svc}, nil
}

// Start begins long polling and blocks until the context is canceled.
// Reaction updates are only delivered when message_reaction is in the
// allowed updates list.
func (s *TelegramServer) Start(ctx context.Context) error {
	updates, err := s.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "message_reaction"},
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	fmt.Println("[Telegram] Bot connected, polling for updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				s.handleMessage(ctx, update.Message)
			}
			if update.MessageReaction != nil {
				s.handleReaction(ctx, update.MessageReaction)
			}
		}
	}
}

func (s *TelegramServer) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil {
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	senderName := msg.From.Username
	if senderName == "" {
		senderName = msg.From.FirstName
	}

	s.svc.HandleMessage(ctx, domain.Message{
		ChatID:     strconv.FormatInt(msg.Chat.ID, 10),
		MsgID:      strconv.Itoa(msg.MessageID),
		SenderID:   strconv.FormatInt(msg.From.ID, 10),
		SenderName: senderName,
		Text:       text,
		CreatedAt:  time.Unix(msg.Date, 0),
	})
}

func (s *TelegramServer) handleReaction(ctx context.Context, reaction *telego.MessageReactionUpdated) {
	if reaction.User == nil {
		return
	}

	old := make(map[string]struct{}, len(reaction.OldReaction))
	for _, r := range reaction.OldReaction {
		if e, ok := emojiOf(r); ok {
			old[e] = struct{}{}
		}
	}

	for _, r := range reaction.NewReaction {
		emoji, ok := emojiOf(r)
		if !ok {
			continue
		}
		if _, existed := old[emoji]; existed {
			continue
		}

		ev := domain.ReactionEvent{
			ChatID:    strconv.FormatInt(reaction.Chat.ID, 10),
			MsgID:     strconv.Itoa(reaction.MessageID),
			ReactorID: strconv.FormatInt(reaction.User.ID, 10),
			Emoji:     emoji,
		}
		// Each trigger runs independently; slow webhook calls must not
		// stall the update loop
		go s.svc.HandleReaction(ctx, ev)
	}
}

func emojiOf(r telego.ReactionType) (string, bool) {
	switch rt := r.(type) {
	case *telego.ReactionTypeEmoji:
		return rt.Emoji, true
	default:
		return "", false
	}
}

// SendPrivate sends a direct message to a user
func (s *TelegramServer) SendPrivate(ctx context.Context, userID, text string) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	if _, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(id), text)); err != nil {
		return fmt.Errorf("send private message: %w", err)
	}
	return nil
}

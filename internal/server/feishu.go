package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"

	lark "github.com/larksuite/oapi-sdk-go/v3"

	"github.com/elliehq/issue-relay/internal/biz/domain"
	"github.com/elliehq/issue-relay/internal/service"
)

// FeishuServer bridges Feishu websocket events into the relay pipeline.
// Feishu reaction events carry no chat id; the relay locates the message
// in its buffers instead.
type FeishuServer struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	svc       *service.RelayService
	cancel    context.CancelFunc
}

// NewFeishuServer creates the Feishu adapter
func NewFeishuServer(appID, appSecret string, svc *service.RelayService) *FeishuServer {
	return &FeishuServer{
		appID:     appID,
		appSecret: appSecret,
		svc:       svc,
	}
}

// Start connects the websocket and blocks until Stop or a connection
// error. Handlers return immediately so the SDK can ACK; processing
// happens on per-event goroutines.
func (s *FeishuServer) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.larkCli = lark.NewClient(s.appID, s.appSecret)

	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go s.handleMessage(ctx, event)
			return nil
		}).
		OnP2MessageReactionCreatedV1(func(ctx context.Context, event *larkim.P2MessageReactionCreatedV1) error {
			go s.handleReaction(ctx, event)
			return nil
		})

	s.wsCli = larkws.NewClient(s.appID, s.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	fmt.Println("[Feishu] Starting WebSocket connection...")
	return s.wsCli.Start(ctx)
}

// Stop disconnects from Feishu
func (s *FeishuServer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *FeishuServer) handleMessage(ctx context.Context, event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil || rawMsg.MessageType == nil || *rawMsg.MessageType != "text" {
		return
	}

	// Ignore the bot's own messages
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil && *event.Event.Sender.SenderType == "app" {
		return
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if rawMsg.Content == nil || json.Unmarshal([]byte(*rawMsg.Content), &parsed) != nil {
		return
	}

	senderID := ""
	if event.Event.Sender != nil && event.Event.Sender.SenderId != nil && event.Event.Sender.SenderId.OpenId != nil {
		senderID = *event.Event.Sender.SenderId.OpenId
	}

	createdAt := time.Now()
	if rawMsg.CreateTime != nil {
		// Milliseconds Unix timestamp
		if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
			createdAt = time.UnixMilli(ts)
		}
	}

	chatID := ""
	if rawMsg.ChatId != nil {
		chatID = *rawMsg.ChatId
	}
	msgID := ""
	if rawMsg.MessageId != nil {
		msgID = *rawMsg.MessageId
	}

	s.svc.HandleMessage(ctx, domain.Message{
		ChatID:    chatID,
		MsgID:     msgID,
		SenderID:  senderID,
		Text:      parsed.Text,
		CreatedAt: createdAt,
	})
}

func (s *FeishuServer) handleReaction(ctx context.Context, event *larkim.P2MessageReactionCreatedV1) {
	data := event.Event
	if data == nil || data.MessageId == nil {
		return
	}
	if data.OperatorType != nil && *data.OperatorType != "user" {
		return
	}

	emoji := ""
	if data.ReactionType != nil && data.ReactionType.EmojiType != nil {
		emoji = *data.ReactionType.EmojiType
	}

	reactorID := ""
	if data.UserId != nil && data.UserId.OpenId != nil {
		reactorID = *data.UserId.OpenId
	}
	if reactorID == "" || emoji == "" {
		return
	}

	s.svc.HandleReaction(ctx, domain.ReactionEvent{
		// ChatID deliberately empty: the reaction event does not carry it
		MsgID:     *data.MessageId,
		ReactorID: reactorID,
		Emoji:     emoji,
	})
}

// SendPrivate sends a direct message to a user by open_id
func (s *FeishuServer) SendPrivate(ctx context.Context, userID, text string) error {
	content, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeOpenId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(userID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := s.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send private message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send private message error: %s", resp.Msg)
	}
	return nil
}

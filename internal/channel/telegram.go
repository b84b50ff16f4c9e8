package channel

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

const telegramAPIBase = "https://api.telegram.org"

var chatIDPattern = regexp.MustCompile(`^-?\d+$`)

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramSendResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Description string `json:"description"`
}

// TelegramSender delivers notifications through the Telegram Bot API. The
// recipient is a chat id.
type TelegramSender struct {
	client   *resty.Client
	botToken string
	baseURL  string
}

func NewTelegramSender(botToken string) *TelegramSender {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(0)

	return &TelegramSender{
		client:   client,
		botToken: botToken,
		baseURL:  telegramAPIBase,
	}
}

func (s *TelegramSender) Name() domain.Channel {
	return domain.ChannelTelegram
}

func (s *TelegramSender) ValidateRecipient(recipient string) bool {
	return chatIDPattern.MatchString(recipient)
}

func (s *TelegramSender) Send(ctx context.Context, msg Message) SendResult {
	if s.botToken == "" {
		return failure("telegram channel not configured")
	}
	if !s.ValidateRecipient(msg.Recipient) {
		return failure("invalid telegram chat id: %s", msg.Recipient)
	}

	var parsed telegramSendResponse

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(telegramSendRequest{
			ChatID:    msg.Recipient,
			Text:      msg.Body,
			ParseMode: "HTML",
		}).
		SetResult(&parsed).
		SetError(&parsed).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken))
	if err != nil {
		return failure("telegram request failed: %v", err)
	}

	if response.StatusCode() != http.StatusOK || !parsed.OK {
		description := strings.TrimSpace(parsed.Description)
		if description == "" {
			description = fmt.Sprintf("status %d", response.StatusCode())
		}
		return failure("telegram api error: %s", description)
	}

	return SendResult{
		Success:   true,
		MessageID: fmt.Sprintf("%d", parsed.Result.MessageID),
	}
}

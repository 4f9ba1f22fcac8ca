// README: LINE Messaging API gateway for replies and push notifications.
package infra

import (
	"context"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// maxReplyMessages is the Messaging API limit per reply or push request.
const maxReplyMessages = 5

type LineGateway struct {
	api *messaging_api.MessagingApiAPI
}

func NewLineGateway(channelToken string) (*LineGateway, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, err
	}
	return &LineGateway{api: api}, nil
}

func (g *LineGateway) Reply(ctx context.Context, replyToken string, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	_, err := g.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   textMessages(texts),
	})
	return err
}

func (g *LineGateway) Push(ctx context.Context, to, text string) error {
	_, err := g.api.WithContext(ctx).PushMessage(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: textMessages([]string{text}),
	}, "")
	return err
}

// textMessages converts texts to messages, folding any overflow into the last one.
func textMessages(texts []string) []messaging_api.MessageInterface {
	texts = FoldReplies(texts, maxReplyMessages)
	out := make([]messaging_api.MessageInterface, 0, len(texts))
	for _, t := range texts {
		out = append(out, messaging_api.TextMessage{Text: t})
	}
	return out
}

// FoldReplies joins texts beyond the first max-1 into one final message.
func FoldReplies(texts []string, max int) []string {
	if len(texts) <= max {
		return texts
	}
	out := append([]string(nil), texts[:max-1]...)
	return append(out, strings.Join(texts[max-1:], "\n\n"))
}

package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrNoReply = errors.New("client: assistant returned no reply")

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []ChatMessage `json:"conversationHistory"`
}

type chatResponse struct {
	Success bool `json:"success"`
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	ConversationHistory []ChatMessage `json:"conversationHistory"`
}

// SendChatMessage sends message with the prior history and returns the
// assistant's reply. history should already include message as its last user
// turn, as the backend expects.
func (c *Client) SendChatMessage(ctx context.Context, message string, history []ChatMessage) (string, error) {
	if history == nil {
		history = []ChatMessage{}
	}
	var resp chatResponse
	err := c.do(ctx, http.MethodPost, "/api/chat/message", "/api/chat/message", nil,
		chatRequest{Message: message, ConversationHistory: history}, &resp)
	if err != nil {
		return "", err
	}
	return resp.reply()
}

func (r chatResponse) reply() (string, error) {
	if r.Success && r.Message != nil && strings.TrimSpace(r.Message.Content) != "" {
		return r.Message.Content, nil
	}
	for i := len(r.ConversationHistory) - 1; i >= 0; i-- {
		turn := r.ConversationHistory[i]
		if turn.Role == RoleAssistant && strings.TrimSpace(turn.Content) != "" {
			return turn.Content, nil
		}
	}
	return "", ErrNoReply
}

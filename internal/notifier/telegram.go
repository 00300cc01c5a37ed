package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Telegram 把关键事件（开平仓、下单连续失败、熔断）推送到指定会话。
// 发送自带重试，调用端 fire-and-forget。

const (
	telegramAPI  = "https://api.telegram.org/bot%s/sendMessage"
	sendAttempts = 3
	sendTimeout  = 15 * time.Second
)

type Telegram struct {
	token  string
	chatID string
	api    string
	client *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		api:    telegramAPI,
		client: &http.Client{Timeout: sendTimeout},
	}
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendText 发送 Markdown 文本，网络错误或非 2xx 状态按次退避重试。
func (t *Telegram) SendText(text string) error {
	if t.token == "" || t.chatID == "" {
		return errors.New("notifier: telegram token/chat_id 未配置")
	}
	payload, err := json.Marshal(sendMessage{ChatID: t.chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("notifier: encode message: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if lastErr = t.post(payload); lastErr == nil {
			return nil
		}
		if attempt < sendAttempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return lastErr
}

func (t *Telegram) post(payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf(t.api, t.token), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("notifier: telegram status %d", resp.StatusCode)
	}
	return nil
}

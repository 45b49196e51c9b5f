package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// SubmissionAnswer — одна строка ответа в payload уведомления
type SubmissionAnswer struct {
	QuestionID       uint   `json:"questionId"`
	SelectedOptionID *uint  `json:"selectedOptionId,omitempty"`
	AnswerText       string `json:"answerText,omitempty"`
	IsCorrect        *bool  `json:"isCorrect,omitempty"`
}

// SubmissionNotification — payload webhook-уведомления о сдаче теста
type SubmissionNotification struct {
	TestID      uint               `json:"testId"`
	AttemptID   uint               `json:"attemptId"`
	UserID      uint               `json:"userId"`
	UserName    string             `json:"userName"`
	UserEmail   string             `json:"userEmail"`
	Answers     []SubmissionAnswer `json:"answers"`
	TimeSpent   int                `json:"timeSpent"` // секунды
	SubmittedAt time.Time          `json:"submittedAt"`
	Score       *int               `json:"score"`
	Passed      *bool              `json:"passed"`
	TimeUp      bool               `json:"timeUp"`
}

// WebhookNotifier отправляет внешнее уведомление о сдаче теста
type WebhookNotifier interface {
	NotifySubmission(ctx context.Context, payload *SubmissionNotification) error
}

// NoopWebhookNotifier используется, когда URL уведомлений не настроен
type NoopWebhookNotifier struct{}

func (n *NoopWebhookNotifier) NotifySubmission(ctx context.Context, payload *SubmissionNotification) error {
	log.Printf("[WebhookNotifier] noop: уведомление о попытке #%d не отправлено (URL не настроен)", payload.AttemptID)
	return nil
}

// HTTPWebhookNotifier отправляет уведомления POST-запросом на настроенный URL
type HTTPWebhookNotifier struct {
	url    string
	client *http.Client
}

// NewHTTPWebhookNotifier создает HTTP-уведомитель
func NewHTTPWebhookNotifier(url string, timeout time.Duration) *HTTPWebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPWebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// NotifySubmission отправляет payload на webhook. Ответ с кодом вне 2xx
// считается ошибкой; решение о том, фатальна ли она, принимает вызывающий.
func (n *HTTPWebhookNotifier) NotifySubmission(ctx context.Context, payload *SubmissionNotification) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

package websocket

import (
	"encoding/json"
	"log"
	"time"
)

// Типы событий тестовой сессии
const (
	EventSessionTick      = "session:tick"
	EventSessionTimeUp    = "session:time_up"
	EventSessionSubmitted = "session:submitted"
)

// Event — конверт события, отправляемого клиенту
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// TickData — данные тика обратного отсчёта
type TickData struct {
	AttemptID    uint `json:"attempt_id"`
	RemainingSec int  `json:"remaining_sec"`
}

// SubmittedData — данные события о сдаче попытки
type SubmittedData struct {
	AttemptID uint `json:"attempt_id"`
	TimeUp    bool `json:"time_up"`
}

// SessionTick реализует testsession.EventSink
func (h *Hub) SessionTick(userID, attemptID uint, remainingSec int) {
	h.sendEvent(userID, EventSessionTick, TickData{AttemptID: attemptID, RemainingSec: remainingSec})
}

// SessionTimeUp реализует testsession.EventSink
func (h *Hub) SessionTimeUp(userID, attemptID uint) {
	h.sendEvent(userID, EventSessionTimeUp, SubmittedData{AttemptID: attemptID, TimeUp: true})
}

// SessionSubmitted реализует testsession.EventSink
func (h *Hub) SessionSubmitted(userID, attemptID uint, timeUp bool) {
	h.sendEvent(userID, EventSessionSubmitted, SubmittedData{AttemptID: attemptID, TimeUp: timeUp})
}

func (h *Hub) sendEvent(userID uint, eventType string, data interface{}) {
	message, err := json.Marshal(Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("[WebSocket] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	h.SendToUser(userID, message)
}

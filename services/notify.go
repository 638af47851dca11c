package services

import "encoding/json"

const notifyMessageLimit = 100

type Notification struct {
	NotifyType string `json:"notify_type"`
	Message    string `json:"message"`
}

type Notifier interface {
	Notify(userID int64, notifyType string, message string) error
}

// Notify - отправка уведомления через WebSocket
func (m *WSConnManager) Notify(userID int64, notifyType string, message string) error {
	if len(notifyType) == 0 {
		notifyType = "info"
	}
	if len(message) == 0 {
		return nil
	}
	if runes := []rune(message); len(runes) > notifyMessageLimit {
		message = string(runes[:notifyMessageLimit]) + "..."
	}
	data, err := json.Marshal(Notification{NotifyType: notifyType, Message: message})
	if err != nil {
		return err
	}
	m.Send(userID, data)
	return nil
}

package models

import "time"

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

const DefaultNotificationDuration = 5 * time.Second

type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

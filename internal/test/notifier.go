package test

import (
	"context"
	"sync"

	"github.com/coursepay/coursepay/internal/adapter/notification"
)

// UserNotification is one recorded NotifyUser call.
type UserNotification struct {
	UserID  int64
	Subject string
	Message string
}

// AdminNotification is one recorded NotifyAdmins call.
type AdminNotification struct {
	Subject  string
	Message  string
	Priority notification.Priority
}

// NotifierStub records notifications for assertions.
type NotifierStub struct {
	mu sync.Mutex

	UserMessages  []UserNotification
	AdminMessages []AdminNotification
	Err           error
}

// NotifyUser records the message or returns configured error.
func (s *NotifierStub) NotifyUser(ctx context.Context, userID int64, subject, message string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserMessages = append(s.UserMessages, UserNotification{UserID: userID, Subject: subject, Message: message})
	return nil
}

// NotifyAdmins records the message or returns configured error.
func (s *NotifierStub) NotifyAdmins(ctx context.Context, subject, message string, priority notification.Priority) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AdminMessages = append(s.AdminMessages, AdminNotification{Subject: subject, Message: message, Priority: priority})
	return nil
}

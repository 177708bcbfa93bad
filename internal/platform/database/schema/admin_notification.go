// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AdminNotificationTable represents the 'admin.notification' table
type AdminNotificationTable struct {
	Table     string
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      string
	IsGlobal  string
	SentBy    string
	CreatedAt string
}

var AdminNotification = AdminNotificationTable{
	Table:     "admin.notification",
	ID:        "id",
	UserID:    "userid",
	Title:     "title",
	Message:   "message",
	Type:      "type",
	IsGlobal:  "isglobal",
	SentBy:    "sentby",
	CreatedAt: "createdat",
}

// AdminNotificationReceiptTable represents the 'admin.notificationreceipt' table.
// A row marks one notification as read or dismissed by one user.
type AdminNotificationReceiptTable struct {
	Table          string
	NotificationID string
	UserID         string
	ReadAt         string
	DismissedAt    string
}

var AdminNotificationReceipt = AdminNotificationReceiptTable{
	Table:          "admin.notificationreceipt",
	NotificationID: "notificationid",
	UserID:         "userid",
	ReadAt:         "readat",
	DismissedAt:    "dismissedat",
}

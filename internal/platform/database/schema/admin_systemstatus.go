// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AdminSystemStatusTable represents the single-row 'admin.systemstatus' table
type AdminSystemStatusTable struct {
	Table     string
	ID        string
	Status    string
	Message   string
	UpdatedBy string
	UpdatedAt string
}

var AdminSystemStatus = AdminSystemStatusTable{
	Table:     "admin.systemstatus",
	ID:        "id",
	Status:    "status",
	Message:   "message",
	UpdatedBy: "updatedby",
	UpdatedAt: "updatedat",
}

// AdminStatusHistoryTable represents the 'admin.statushistory' table
type AdminStatusHistoryTable struct {
	Table     string
	ID        string
	Status    string
	Message   string
	ChangedBy string
	CreatedAt string
}

var AdminStatusHistory = AdminStatusHistoryTable{
	Table:     "admin.statushistory",
	ID:        "id",
	Status:    "status",
	Message:   "message",
	ChangedBy: "changedby",
	CreatedAt: "createdat",
}

// AdminServiceStatusTable represents the 'admin.servicestatus' table
type AdminServiceStatusTable struct {
	Table     string
	ID        string
	Name      string
	Status    string
	Message   string
	UpdatedAt string
}

var AdminServiceStatus = AdminServiceStatusTable{
	Table:     "admin.servicestatus",
	ID:        "id",
	Name:      "name",
	Status:    "status",
	Message:   "message",
	UpdatedAt: "updatedat",
}

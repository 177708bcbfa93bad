// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AdminActivityLogTable represents the 'admin.activitylog' table
type AdminActivityLogTable struct {
	Table      string
	ID         string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Details    string
	IPAddress  string
	CreatedAt  string
}

var AdminActivityLog = AdminActivityLogTable{
	Table:      "admin.activitylog",
	ID:         "id",
	ActorID:    "actorid",
	Action:     "action",
	EntityType: "entitytype",
	EntityID:   "entityid",
	Details:    "details",
	IPAddress:  "ipaddress",
	CreatedAt:  "createdat",
}

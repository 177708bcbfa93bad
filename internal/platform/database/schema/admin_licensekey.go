// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AdminLicenseKeyTable represents the 'admin.licensekey' table
type AdminLicenseKeyTable struct {
	Table       string
	ID          string
	Key         string
	Duration    string
	Status      string
	GeneratedBy string
	RedeemedBy  string
	RedeemedAt  string
	AssignedTo  string
	CreatedAt   string
}

var AdminLicenseKey = AdminLicenseKeyTable{
	Table:       "admin.licensekey",
	ID:          "id",
	Key:         "key",
	Duration:    "duration",
	Status:      "status",
	GeneratedBy: "generatedby",
	RedeemedBy:  "redeemedby",
	RedeemedAt:  "redeemedat",
	AssignedTo:  "assignedto",
	CreatedAt:   "createdat",
}

// Columns returns all standard column names
func (t AdminLicenseKeyTable) Columns() []string {
	return []string{
		t.ID, t.Key, t.Duration, t.Status, t.GeneratedBy, t.RedeemedBy, t.RedeemedAt, t.AssignedTo, t.CreatedAt,
	}
}

// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserSessionTable represents the 'users.session' table
type UserSessionTable struct {
	Table       string
	ID          string
	UserID      string
	TokenHash   string
	IPAddress   string
	UserAgent   string
	IsRevoked   string
	ExpiresAt   string
	RefreshedAt string
	RevokedAt   string
	CreatedAt   string
}

// UserSession is the schema definition for users.session
var UserSession = UserSessionTable{
	Table:       "users.session",
	ID:          "id",
	UserID:      "userid",
	TokenHash:   "tokenhash",
	IPAddress:   "ipaddress",
	UserAgent:   "useragent",
	IsRevoked:   "isrevoked",
	ExpiresAt:   "expiresat",
	RefreshedAt: "refreshedat",
	RevokedAt:   "revokedat",
	CreatedAt:   "createdat",
}

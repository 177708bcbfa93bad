// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package status tracks platform health as published by administrators.

There is one system-wide status, a list of per-service statuses, and a history
of every change made to the system status. Reads are public; writes go through
the admin console.
*/
package status

import (
	"context"
	"time"
)

// Level is the health of the platform or of one service.
type Level string

const (
	LevelOperational Level = "operational"
	LevelDegraded    Level = "degraded"
	LevelMaintenance Level = "maintenance"
	LevelOutage      Level = "outage"
)

// Levels lists every valid level, healthiest first.
var Levels = []Level{LevelOperational, LevelDegraded, LevelMaintenance, LevelOutage}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	for _, level := range Levels {
		if l == level {
			return true
		}
	}
	return false
}

// System is the platform-wide status.
type System struct {
	Status    Level     `json:"status"`
	Message   string    `json:"message"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service is the status of one named component.
type Service struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Status    Level     `json:"status"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Change is one entry of the system status history.
type Change struct {
	ID        int64     `json:"id"`
	Status    Level     `json:"status"`
	Message   string    `json:"message"`
	ChangedBy string    `json:"changed_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Overview is what the public status page shows.
type Overview struct {
	System   *System   `json:"system"`
	Services []Service `json:"services"`
}

// Store persists statuses.
type Store interface {
	System(context context.Context) (*System, error)

	// UpdateSystem replaces the system status and appends a history entry atomically.
	UpdateSystem(context context.Context, update System) (*System, error)

	History(context context.Context, limit int) ([]Change, error)

	Services(context context.Context) ([]Service, error)

	UpdateService(context context.Context, id int, level Level, message string) (*Service, error)
}

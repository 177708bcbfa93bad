// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrRedirectLoop is returned when a redirect target would itself redirect
	// for the condition that sent the caller there.
	ErrRedirectLoop = errors.New("access: redirect target is guarded by the condition it handles")

	// ErrDuplicateRoute is returned when a path is declared twice.
	ErrDuplicateRoute = errors.New("access: duplicate route")
)

// # Route Table

// Route is a navigable view and its declared requirement.
type Route struct {
	Path        string      `json:"path"`
	Name        string      `json:"name"`
	Requirement Requirement `json:"requirement"`
}

// Table is an immutable, validated set of routes.
type Table struct {
	routes []Route
	index  map[string]Route
}

// NewTable validates routes and returns the table.
//
// # Validation
//
//   - Every path is declared once.
//   - [LoginPath], when declared, requires neither authentication nor elevation.
//   - [DashboardPath], when declared, does not require elevation.
func NewTable(routes ...Route) (*Table, error) {
	index := make(map[string]Route, len(routes))

	for _, route := range routes {
		if _, exists := index[route.Path]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, route.Path)
		}
		index[route.Path] = route
	}

	if login, ok := index[LoginPath]; ok && (login.Requirement.RequiresAuth || login.Requirement.RequiresAdmin) {
		return nil, fmt.Errorf("%w: %s", ErrRedirectLoop, LoginPath)
	}

	if dashboard, ok := index[DashboardPath]; ok && dashboard.Requirement.RequiresAdmin {
		return nil, fmt.Errorf("%w: %s", ErrRedirectLoop, DashboardPath)
	}

	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	return &Table{routes: sorted, index: index}, nil
}

// MustTable is [NewTable] for static route declarations; it panics on invalid input.
func MustTable(routes ...Route) *Table {
	table, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return table
}

// Lookup returns the route declared for path.
func (table *Table) Lookup(path string) (Route, bool) {
	route, ok := table.index[path]
	return route, ok
}

// Requirement returns the requirement for path, falling back to
// [DefaultRequirement] for undeclared paths.
func (table *Table) Requirement(path string) Requirement {
	if route, ok := table.index[path]; ok {
		return route.Requirement
	}
	return DefaultRequirement()
}

// Routes returns the declared routes ordered by path.
func (table *Table) Routes() []Route {
	out := make([]Route, len(table.routes))
	copy(out, table.routes)
	return out
}

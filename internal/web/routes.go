// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package web serves the navigable pages as JSON view models.

Every page is declared once in [Routes] together with its access requirement.
The page guard consults that table before any page handler runs, so a handler
only ever sees callers that are allowed to view it.
*/
package web

import "github.com/taibuivan/essence/internal/access"

// Page paths.
const (
	PathHome         = "/"
	PathLogin        = access.LoginPath
	PathSignup       = "/signup"
	PathAuthCallback = "/auth/callback"
	PathStatus       = "/status"
	PathDashboard    = access.DashboardPath
	PathSettings     = "/settings"
	PathProfile      = "/profile"
	PathLibrary      = "/library"
	PathExecute      = "/execute"
	PathAdmin        = "/admin"
	PathAdminStatus  = "/admin/status"
)

// Routes returns the page table.
func Routes() *access.Table {
	return access.MustTable(
		access.Route{Path: PathHome, Name: "home", Requirement: access.Public},
		access.Route{Path: PathLogin, Name: "login", Requirement: access.Public},
		access.Route{Path: PathSignup, Name: "signup", Requirement: access.Public},
		access.Route{Path: PathAuthCallback, Name: "auth_callback", Requirement: access.Public},
		access.Route{Path: PathStatus, Name: "status", Requirement: access.Public},
		access.Route{Path: PathDashboard, Name: "dashboard", Requirement: access.Authenticated},
		access.Route{Path: PathSettings, Name: "settings", Requirement: access.Authenticated},
		access.Route{Path: PathProfile, Name: "profile", Requirement: access.Authenticated},
		access.Route{Path: PathLibrary, Name: "library", Requirement: access.Authenticated},
		access.Route{Path: PathExecute, Name: "execute", Requirement: access.Authenticated},
		access.Route{Path: PathAdmin, Name: "admin", Requirement: access.AdminOnly},
		access.Route{Path: PathAdminStatus, Name: "admin_status", Requirement: access.AdminOnly},
	)
}

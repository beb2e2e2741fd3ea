package handler

// Route constants for the HTML interface.
const (
	RouteRoot      = "/"
	RouteResources = "/resources"
	RouteLogin     = "/login"
	RouteRegister  = "/register"
	RouteLogout    = "/logout"
	RouteDashboard = "/dashboard"
	RouteUpload    = "/upload"
	RouteAdmin     = "/admin"
	RouteApprove   = "/admin/resources/{id}/approve"
	RouteJobs      = "/admin/jobs"
	RouteRunJob    = "/admin/jobs/{name}/run"
	RouteHealth    = "/health"
)

// Page template names.
const (
	pageResources = "resources"
	pageLogin     = "login"
	pageRegister  = "register"
	pageDashboard = "dashboard"
	pageUpload    = "upload"
	pageAdmin     = "admin"
	pageJobs      = "jobs"
	pageError     = "error"
)

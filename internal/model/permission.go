package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionExamsMonitor allows watching the live proctor feed of an exam.
	PermissionExamsMonitor Permission = "exams:monitor"

	// PermissionResultsRead allows viewing submitted exam results.
	PermissionResultsRead Permission = "results:read"

	// PermissionStudentsResetSession allows resetting a student's active login.
	PermissionStudentsResetSession Permission = "students:reset_session"

	// PermissionSettingsRead allows viewing application settings.
	PermissionSettingsRead Permission = "settings:read"

	// PermissionSettingsWrite allows editing application settings.
	PermissionSettingsWrite Permission = "settings:write"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionExamsMonitor,
	PermissionResultsRead,
	PermissionStudentsResetSession,
	PermissionSettingsRead,
	PermissionSettingsWrite,
}

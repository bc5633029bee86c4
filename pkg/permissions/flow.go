package permissions

// Flow remembers whether a permission set has been requested before, so a
// caller can run CheckPermissions repeatedly without tracking the first
// request itself. State lives in memory only.
//
// A Flow is not safe for concurrent use.
type Flow struct {
	activity    Activity
	permissions []string
	requested   bool
}

// NewFlow creates a flow for the given permissions.
func NewFlow(activity Activity, permissions ...string) *Flow {
	return &Flow{
		activity:    activity,
		permissions: append([]string(nil), permissions...),
	}
}

// Permissions returns a copy of the flow's permission set.
func (f *Flow) Permissions() []string {
	return append([]string(nil), f.permissions...)
}

// Requested reports whether the flow has issued its first request.
func (f *Flow) Requested() bool {
	return f.requested
}

// Check runs CheckPermissions for the flow. The first check that finds the
// set not granted is treated as the first request; every later check is not.
func (f *Flow) Check() CheckResult {
	result := CheckPermissions(f.activity, f.permissions, !f.requested)
	if result != CheckResultOK {
		f.requested = true
	}
	return result
}

// Outcome is the result of a permission request, delivered by the host some
// time after RequestPermissions returned.
type Outcome struct {
	RequestCode int
	Permissions []string
	Granted     []bool
}

// Matches reports whether the outcome answers a request made by this package.
func (o Outcome) Matches() bool {
	return o.RequestCode == RequestCode
}

// AllGranted reports whether the user granted every permission in the
// outcome. An empty outcome, as delivered when the dialog is interrupted,
// is not granted.
func (o Outcome) AllGranted() bool {
	if len(o.Permissions) == 0 || len(o.Granted) != len(o.Permissions) {
		return false
	}
	for _, granted := range o.Granted {
		if !granted {
			return false
		}
	}
	return true
}

// Denied returns the permissions the user did not grant. A permission with
// no matching grant result counts as denied.
func (o Outcome) Denied() []string {
	var denied []string
	for i, permission := range o.Permissions {
		if i >= len(o.Granted) || !o.Granted[i] {
			denied = append(denied, permission)
		}
	}
	return denied
}

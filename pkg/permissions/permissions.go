// Package permissions decides whether a set of runtime permissions can be used
// and, when it cannot, whether the host should be asked for them again.
//
// The host's permission model is reached through two small interfaces.
// GrantChecker can only query grant state; Activity can also query the
// rationale flag and raise the host's permission dialog. Functions accept the
// narrowest interface they need.
//
// Typical use from a screen that needs the camera:
//
//	switch permissions.CheckPermissions(platform.Permissions, []string{permissions.Camera}, first) {
//	case permissions.CheckResultOK:
//		startCapture()
//	case permissions.CheckResultFail:
//		// Wait for the outcome, or send the user to settings.
//	}
package permissions

const (
	// RuntimePermissionsMinSDK is the first host platform version on which
	// permissions are granted at runtime. Older versions grant everything at
	// install time.
	RuntimePermissionsMinSDK = 23

	// RequestCode is passed with every permission request so the host can
	// pair the later outcome with this call site.
	RequestCode = 5
)

// CheckResult is the outcome of CheckPermissions.
type CheckResult int

const (
	// CheckResultOK means every permission is already granted.
	CheckResultOK CheckResult = 1
	// CheckResultRefusedOnce means the permissions were declined before, the
	// user can still be asked, and a new request was issued.
	CheckResultRefusedOnce CheckResult = 2
	// CheckResultFail means the permissions are not granted. Either a first
	// request was just issued, or at least one permission is permanently
	// denied and nothing was requested.
	CheckResultFail CheckResult = 3
)

func (r CheckResult) String() string {
	switch r {
	case CheckResultOK:
		return "ok"
	case CheckResultRefusedOnce:
		return "refused_once"
	case CheckResultFail:
		return "fail"
	default:
		return "unknown"
	}
}

// GrantChecker queries the host for grant state.
type GrantChecker interface {
	// CheckGranted reports whether the permission is granted to this process.
	CheckGranted(permission string) bool
	// PlatformVersion returns the host platform API level.
	PlatformVersion() int
}

// Activity is a host handle bound to a UI surface. In addition to queries it
// can show the host's permission dialog.
type Activity interface {
	GrantChecker

	// ShouldShowRationale reports true when the user declined the permission
	// before without choosing "don't ask again". It reports false when the
	// permission is permanently denied or was never requested.
	ShouldShowRationale(permission string) bool

	// RequestPermissions starts the host's permission dialog and returns
	// immediately. The outcome arrives later tagged with requestCode.
	RequestPermissions(permissions []string, requestCode int)
}

// CheckPermissions reports whether permissions are granted and, if not,
// requests them according to whether this is the first request of the flow.
//
// On a first request the full set is requested and CheckResultFail is
// returned; the outcome is delivered asynchronously by the host. On a later
// request the set is requested again only while every permission is still
// askable, returning CheckResultRefusedOnce. If any permission is permanently
// denied nothing is requested and CheckResultFail is returned.
func CheckPermissions(activity Activity, permissions []string, isFirstRequest bool) CheckResult {
	if IsPermissionGranted(activity, permissions) {
		return CheckResultOK
	}
	if isFirstRequest {
		activity.RequestPermissions(permissions, RequestCode)
		return CheckResultFail
	}
	if isRefuseOncePermission(activity, permissions) {
		activity.RequestPermissions(permissions, RequestCode)
		return CheckResultRefusedOnce
	}
	return CheckResultFail
}

// IsPermissionGranted reports whether every permission is granted. Querying
// stops at the first permission that is not. On hosts older than
// RuntimePermissionsMinSDK it returns true without querying.
// An empty set is granted.
func IsPermissionGranted(host GrantChecker, permissions []string) bool {
	if host.PlatformVersion() < RuntimePermissionsMinSDK {
		return true
	}
	for _, permission := range permissions {
		if !host.CheckGranted(permission) {
			return false
		}
	}
	return true
}

// isRefuseOncePermission reports whether the host would show a rationale for
// every permission, meaning none of them is permanently denied yet. Querying
// stops at the first permission without a rationale. An empty set reports
// true.
func isRefuseOncePermission(activity Activity, permissions []string) bool {
	for _, permission := range permissions {
		if !activity.ShouldShowRationale(permission) {
			return false
		}
	}
	return true
}

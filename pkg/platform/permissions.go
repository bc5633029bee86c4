package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/permissions/pkg/errors"
	"github.com/go-drift/permissions/pkg/permissions"
)

// PermissionStatus is the host's grant state for one permission.
type PermissionStatus string

// Permission status constants.
const (
	// PermissionGranted indicates full access has been granted.
	PermissionGranted PermissionStatus = "granted"

	// PermissionDenied indicates the user denied the permission. The app may request again.
	PermissionDenied PermissionStatus = "denied"

	// PermissionPermanentlyDenied indicates the user denied with "don't ask again".
	// The app cannot request again; direct the user to settings.
	PermissionPermanentlyDenied PermissionStatus = "permanently_denied"

	// PermissionRestricted indicates a system policy prevents granting.
	PermissionRestricted PermissionStatus = "restricted"

	// PermissionNotDetermined indicates the user has not been asked yet.
	PermissionNotDetermined PermissionStatus = "not_determined"

	// PermissionStatusUnknown indicates the status could not be determined.
	PermissionStatusUnknown PermissionStatus = "unknown"
)

const (
	permissionsChannel = "drift/permissions"
	resultsChannel     = "drift/permissions/results"
)

// PermissionHost implements permissions.Activity on top of the native
// permission channel.
//
// Its permissions.Activity methods have no error results. A bridge failure is
// reported through errors.Report and treated as "not granted", "no
// rationale" or, for the platform version, as a runtime-permission host.
// Use Status when the error matters.
type PermissionHost struct {
	channel *MethodChannel
	results *Stream[permissions.Outcome]

	mu     sync.Mutex
	sdkInt int
}

// Permissions is the permission host backed by the native bridge.
var Permissions = newPermissionHost()

var _ permissions.Activity = (*PermissionHost)(nil)

func newPermissionHost() *PermissionHost {
	h := &PermissionHost{
		channel: NewMethodChannel(permissionsChannel),
		results: NewStream(NewEventChannel(resultsChannel), parseOutcome),
	}
	h.channel.SetHandler(h.handleMethodCall)
	return h
}

// handleMethodCall serves native callers that want the Go decision instead
// of reimplementing it: checkPermissions takes {permissions, isFirstRequest}
// and answers {result}.
func (h *PermissionHost) handleMethodCall(method string, args any) (any, error) {
	switch method {
	case "checkPermissions":
		m := parseMap(args)
		raw, present := m["permissions"]
		perms, ok := parseStrings(raw)
		if !present || !ok {
			return nil, &errors.ParseError{Channel: permissionsChannel, DataType: "CheckPermissions.permissions", Got: args}
		}
		first, _ := parseBool(m["isFirstRequest"])
		result := permissions.CheckPermissions(h, perms, first)
		return map[string]any{"result": int(result)}, nil
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrMethodNotFound, permissionsChannel, method)
}

// Status returns the host's status for a single permission.
func (h *PermissionHost) Status(permission string) (PermissionStatus, error) {
	result, err := h.channel.Invoke("check", map[string]any{
		"permission": permission,
	})
	if err != nil {
		return PermissionStatusUnknown, err
	}
	m := parseMap(result)
	status := parseString(m["status"])
	if status == "" {
		return PermissionStatusUnknown, &errors.ParseError{
			Channel:  permissionsChannel,
			DataType: "PermissionStatus",
			Got:      result,
		}
	}
	return PermissionStatus(status), nil
}

// CheckGranted reports whether the permission is granted.
func (h *PermissionHost) CheckGranted(permission string) bool {
	status, err := h.Status(permission)
	if err != nil {
		h.report("permissions.check", permission, err)
		return false
	}
	return status == PermissionGranted
}

// ShouldShowRationale reports whether the host would show a rationale for
// the permission.
func (h *PermissionHost) ShouldShowRationale(permission string) bool {
	result, err := h.channel.Invoke("shouldShowRationale", map[string]any{
		"permission": permission,
	})
	if err != nil {
		h.report("permissions.shouldShowRationale", permission, err)
		return false
	}
	show, ok := parseBool(parseMap(result)["shouldShow"])
	if !ok {
		h.report("permissions.shouldShowRationale", permission, &errors.ParseError{
			Channel:  permissionsChannel,
			DataType: "Rationale",
			Got:      result,
		})
		return false
	}
	return show
}

// RequestPermissions asks the host to show its permission dialog for the
// given permissions. It does not wait for the user; the outcome arrives on
// Results tagged with requestCode.
func (h *PermissionHost) RequestPermissions(perms []string, requestCode int) {
	_, err := h.channel.Invoke("requestMultiple", map[string]any{
		"permissions": perms,
		"requestCode": requestCode,
	})
	if err != nil {
		h.report("permissions.request", "", err)
	}
}

// PlatformVersion returns the host API level. The value is cached after the
// first successful query.
func (h *PermissionHost) PlatformVersion() int {
	h.mu.Lock()
	cached := h.sdkInt
	h.mu.Unlock()
	if cached > 0 {
		return cached
	}

	result, err := h.channel.Invoke("sdkVersion", nil)
	if err != nil {
		h.report("permissions.sdkVersion", "", err)
		return permissions.RuntimePermissionsMinSDK
	}
	sdkInt, ok := toInt(parseMap(result)["sdkInt"])
	if !ok || sdkInt <= 0 {
		h.report("permissions.sdkVersion", "", &errors.ParseError{
			Channel:  permissionsChannel,
			DataType: "SDKVersion",
			Got:      result,
		})
		return permissions.RuntimePermissionsMinSDK
	}

	h.mu.Lock()
	h.sdkInt = sdkInt
	h.mu.Unlock()
	return sdkInt
}

// OpenAppSettings opens the system settings page for this app. Use it after a
// check fails because a permission is permanently denied.
func (h *PermissionHost) OpenAppSettings() error {
	_, err := h.channel.Invoke("openSettings", nil)
	return err
}

// Results returns the stream of permission request outcomes, including those
// for request codes other than permissions.RequestCode.
func (h *PermissionHost) Results() *Stream[permissions.Outcome] {
	return h.results
}

// OnOutcome calls handler for every outcome answering a request made by
// package permissions. The handler runs on the UI thread when a dispatch
// function is registered, otherwise on the bridge's goroutine. A panicking
// handler is reported and does not break the stream.
func (h *PermissionHost) OnOutcome(handler func(permissions.Outcome)) (unsubscribe func()) {
	return h.results.Listen(func(outcome permissions.Outcome) {
		if !outcome.Matches() {
			return
		}
		deliver := func() {
			defer errors.Recover("permissions.outcome")
			handler(outcome)
		}
		if !Dispatch(deliver) {
			deliver()
		}
	})
}

func (h *PermissionHost) resetCache() {
	h.mu.Lock()
	h.sdkInt = 0
	h.mu.Unlock()
}

func (h *PermissionHost) report(op, permission string, err error) {
	kind := errors.KindPlatform
	if _, ok := err.(*errors.ParseError); ok {
		kind = errors.KindParsing
	}
	errors.Report(&errors.PlatformError{
		Op:         op,
		Kind:       kind,
		Channel:    permissionsChannel,
		Permission: permission,
		Err:        err,
		StackTrace: errors.CaptureStack(),
	})
}

// parseOutcome decodes {requestCode, permissions, grantResults}. Grant
// results may be booleans or the host's integer codes, where 0 means
// granted.
func parseOutcome(data any) (permissions.Outcome, error) {
	m := parseMap(data)
	if m == nil {
		return permissions.Outcome{}, &errors.ParseError{Channel: resultsChannel, DataType: "Outcome", Got: data}
	}
	code, ok := toInt(m["requestCode"])
	if !ok {
		return permissions.Outcome{}, fmt.Errorf("outcome missing requestCode: %w",
			&errors.ParseError{Channel: resultsChannel, DataType: "Outcome", Got: data})
	}
	perms, ok := parseStrings(m["permissions"])
	if !ok {
		return permissions.Outcome{}, &errors.ParseError{Channel: resultsChannel, DataType: "Outcome.permissions", Got: m["permissions"]}
	}

	var granted []bool
	if raw, ok := m["grantResults"].([]any); ok {
		granted = make([]bool, 0, len(raw))
		for _, item := range raw {
			if b, ok := parseBool(item); ok {
				granted = append(granted, b)
				continue
			}
			n, ok := toInt(item)
			if !ok {
				return permissions.Outcome{}, &errors.ParseError{Channel: resultsChannel, DataType: "Outcome.grantResults", Got: item}
			}
			granted = append(granted, n == 0)
		}
	}

	return permissions.Outcome{
		RequestCode: code,
		Permissions: perms,
		Granted:     granted,
	}, nil
}

package adb

import (
	"bufio"
	"strings"

	"github.com/go-drift/permissions/pkg/permissions"
)

// Permission flags reported by the package manager.
const (
	FlagUserSet     = "USER_SET"
	FlagUserFixed   = "USER_FIXED"
	FlagPolicyFixed = "POLICY_FIXED"
)

// PermissionState is one permission line of the package dump.
type PermissionState struct {
	Name    string
	Granted bool
	Flags   []string
}

// HasFlag reports whether the package manager set flag on the permission.
func (s PermissionState) HasFlag(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Rationale reports what the host would answer for "should show rationale":
// the user declined before and did not ask never to be asked again.
func (s PermissionState) Rationale() bool {
	return !s.Granted && s.HasFlag(FlagUserSet) && !s.HasFlag(FlagUserFixed) && !s.HasFlag(FlagPolicyFixed)
}

// Snapshot is the permission state of an application at one point in time.
// It implements permissions.Activity. Requests are recorded rather than
// sent, since a shell cannot raise the application's permission dialog.
type Snapshot struct {
	AppID  string
	SDKInt int
	States map[string]PermissionState

	// Requests holds every request made through RequestPermissions.
	Requests [][]string
}

var _ permissions.Activity = (*Snapshot)(nil)

// State returns the recorded state of a permission. Permissions the
// application does not declare are reported as not granted.
func (s *Snapshot) State(permission string) PermissionState {
	if state, ok := s.States[permission]; ok {
		return state
	}
	return PermissionState{Name: permission}
}

// CheckGranted reports the granted bit recorded in the snapshot.
func (s *Snapshot) CheckGranted(permission string) bool {
	return s.State(permission).Granted
}

// PlatformVersion returns the device API level read with getprop.
func (s *Snapshot) PlatformVersion() int {
	return s.SDKInt
}

// ShouldShowRationale derives the rationale answer from the permission flags.
// See PermissionState.Rationale.
func (s *Snapshot) ShouldShowRationale(permission string) bool {
	return s.State(permission).Rationale()
}

// RequestPermissions records the request in Requests instead of sending it;
// the shell cannot open the permission dialog. requestCode is not kept.
func (s *Snapshot) RequestPermissions(perms []string, requestCode int) {
	s.Requests = append(s.Requests, append([]string(nil), perms...))
}

// ParseDumpsys extracts permission states from `dumpsys package` output.
// Lines have the form
//
//	android.permission.CAMERA: granted=false, flags=[ USER_SET|USER_SENSITIVE_WHEN_GRANTED ]
//
// When a permission appears more than once (several users) the first entry
// wins.
func ParseDumpsys(out string) (map[string]PermissionState, error) {
	if strings.Contains(out, "Unable to find package") {
		return nil, ErrPackageNotFound
	}

	states := make(map[string]PermissionState)
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		state, ok := parsePermissionLine(scanner.Text())
		if !ok {
			continue
		}
		if _, seen := states[state.Name]; !seen {
			states[state.Name] = state
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return states, nil
}

func parsePermissionLine(line string) (PermissionState, bool) {
	line = strings.TrimSpace(line)
	name, rest, ok := strings.Cut(line, ": granted=")
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return PermissionState{}, false
	}

	grantedText, flagsText, _ := strings.Cut(rest, ",")
	var state PermissionState
	switch strings.TrimSpace(grantedText) {
	case "true":
		state.Granted = true
	case "false":
	default:
		return PermissionState{}, false
	}
	state.Name = name

	if _, list, ok := strings.Cut(flagsText, "flags=["); ok {
		list, _, _ = strings.Cut(list, "]")
		for _, flag := range strings.Split(list, "|") {
			if flag = strings.TrimSpace(flag); flag != "" {
				state.Flags = append(state.Flags, flag)
			}
		}
	}
	return state, true
}

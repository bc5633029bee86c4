package platform

// TestSDKVersion is the API level reported by the bridge SetupTestBridge
// installs.
const TestSDKVersion = 33

// grantingBridge answers the permission channel as a runtime-permission host
// on which every permission is already granted. Event streams are accepted
// and never produce events.
type grantingBridge struct{}

func (grantingBridge) InvokeMethod(channel, method string, _ []byte) ([]byte, error) {
	if channel != permissionsChannel {
		return DefaultCodec.Encode(nil)
	}
	switch method {
	case "check":
		return DefaultCodec.Encode(map[string]any{"status": PermissionGranted})
	case "shouldShowRationale":
		return DefaultCodec.Encode(map[string]any{"shouldShow": false})
	case "sdkVersion":
		return DefaultCodec.Encode(map[string]any{"sdkInt": TestSDKVersion})
	}
	return DefaultCodec.Encode(nil)
}

func (grantingBridge) StartEventStream(string) error { return nil }
func (grantingBridge) StopEventStream(string) error  { return nil }

// SetupTestBridge installs a bridge on which every permission is granted,
// plus a dispatch function that runs callbacks inline. cleanup receives
// ResetForTest; pass t.Cleanup:
//
//	platform.SetupTestBridge(t.Cleanup)
//
// With it installed, CheckPermissions on Permissions returns
// permissions.CheckResultOK for any set.
func SetupTestBridge(cleanup func(func())) {
	SetNativeBridge(grantingBridge{})
	RegisterDispatch(func(cb func()) { cb() })
	cleanup(ResetForTest)
}

package adb

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/go-drift/permissions/pkg/permissions"
)

const sampleDump = `Packages:
  Package [com.picoxr.capturesdkdemo] (4b1c2d):
    userId=10234
    requested permissions:
      android.permission.CAMERA
      android.permission.RECORD_AUDIO
      android.permission.INTERNET
    install permissions:
      android.permission.INTERNET: granted=true
    User 0: ceDataInode=12345 installed=true hidden=false
      runtime permissions:
        android.permission.CAMERA: granted=false, flags=[ USER_SET|USER_SENSITIVE_WHEN_GRANTED|USER_SENSITIVE_WHEN_DENIED]
        android.permission.RECORD_AUDIO: granted=false, flags=[ USER_SET|USER_FIXED ]
        android.permission.POST_NOTIFICATIONS: granted=true, flags=[ USER_SET ]
    User 10: ceDataInode=0 installed=true hidden=false
      runtime permissions:
        android.permission.CAMERA: granted=true, flags=[ USER_SET ]
`

func TestParseDumpsys(t *testing.T) {
	states, err := ParseDumpsys(sampleDump)
	if err != nil {
		t.Fatalf("ParseDumpsys: %v", err)
	}

	want := map[string]PermissionState{
		"android.permission.INTERNET": {Name: "android.permission.INTERNET", Granted: true},
		permissions.Camera: {
			Name:  permissions.Camera,
			Flags: []string{"USER_SET", "USER_SENSITIVE_WHEN_GRANTED", "USER_SENSITIVE_WHEN_DENIED"},
		},
		permissions.RecordAudio: {
			Name:  permissions.RecordAudio,
			Flags: []string{"USER_SET", "USER_FIXED"},
		},
		permissions.PostNotifications: {
			Name:    permissions.PostNotifications,
			Granted: true,
			Flags:   []string{"USER_SET"},
		},
	}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("ParseDumpsys() =\n%+v\nwant\n%+v", states, want)
	}
}

func TestParseDumpsysPackageMissing(t *testing.T) {
	_, err := ParseDumpsys("Unable to find package: com.example.missing\n")
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("err = %v, want ErrPackageNotFound", err)
	}
}

func TestPermissionStateRationale(t *testing.T) {
	tests := []struct {
		name  string
		state PermissionState
		want  bool
	}{
		{"never asked", PermissionState{}, false},
		{"declined once", PermissionState{Flags: []string{FlagUserSet}}, true},
		{"don't ask again", PermissionState{Flags: []string{FlagUserSet, FlagUserFixed}}, false},
		{"policy fixed", PermissionState{Flags: []string{FlagUserSet, FlagPolicyFixed}}, false},
		{"granted", PermissionState{Granted: true, Flags: []string{FlagUserSet}}, false},
	}
	for _, tt := range tests {
		if got := tt.state.Rationale(); got != tt.want {
			t.Errorf("%s: Rationale() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSnapshotAsActivity(t *testing.T) {
	states, err := ParseDumpsys(sampleDump)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		perms        []string
		first        bool
		want         permissions.CheckResult
		wantRequests int
	}{
		{"granted", []string{permissions.PostNotifications}, false, permissions.CheckResultOK, 0},
		{"declined once", []string{permissions.Camera}, false, permissions.CheckResultRefusedOnce, 1},
		{"don't ask again", []string{permissions.Camera, permissions.RecordAudio}, false, permissions.CheckResultFail, 0},
		{"first request", []string{permissions.RecordAudio}, true, permissions.CheckResultFail, 1},
		{"undeclared permission", []string{permissions.AccessFineLocation}, false, permissions.CheckResultFail, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{AppID: "com.picoxr.capturesdkdemo", SDKInt: 33, States: states}
			if got := permissions.CheckPermissions(snap, tt.perms, tt.first); got != tt.want {
				t.Errorf("CheckPermissions() = %v, want %v", got, tt.want)
			}
			if len(snap.Requests) != tt.wantRequests {
				t.Errorf("requests = %d, want %d", len(snap.Requests), tt.wantRequests)
			}
		})
	}

	t.Run("pre-runtime device", func(t *testing.T) {
		snap := &Snapshot{SDKInt: 22}
		if got := permissions.CheckPermissions(snap, []string{permissions.Camera}, false); got != permissions.CheckResultOK {
			t.Errorf("CheckPermissions() = %v, want ok", got)
		}
	})
}

func TestClientSnapshot(t *testing.T) {
	var commands []string
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		commands = append(commands, name+" "+strings.Join(args, " "))
		switch {
		case strings.HasSuffix(strings.Join(args, " "), "getprop ro.build.version.sdk"):
			return []byte("33\n"), nil
		case strings.Contains(strings.Join(args, " "), "dumpsys package"):
			return []byte(sampleDump), nil
		}
		return nil, errors.New("unexpected command")
	}

	client := NewClientWithRunner("emulator-5554", run)
	snap, err := client.Snapshot(context.Background(), "com.picoxr.capturesdkdemo")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.SDKInt != 33 || snap.AppID != "com.picoxr.capturesdkdemo" {
		t.Errorf("snapshot = %+v", snap)
	}
	want := []string{
		"adb -s emulator-5554 shell getprop ro.build.version.sdk",
		"adb -s emulator-5554 shell dumpsys package com.picoxr.capturesdkdemo",
	}
	if !reflect.DeepEqual(commands, want) {
		t.Errorf("commands = %v, want %v", commands, want)
	}
}

func TestClientErrors(t *testing.T) {
	t.Run("bad sdk", func(t *testing.T) {
		client := NewClientWithRunner("", func(context.Context, string, ...string) ([]byte, error) {
			return []byte("unknown\n"), nil
		})
		if _, err := client.SDKVersion(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("adb failure", func(t *testing.T) {
		adbErr := errors.New("no devices/emulators found")
		client := NewClientWithRunner("", func(context.Context, string, ...string) ([]byte, error) {
			return nil, adbErr
		})
		if _, err := client.Snapshot(context.Background(), "com.example.app"); !errors.Is(err, adbErr) {
			t.Errorf("err = %v, want wrapped adb error", err)
		}
	})

	t.Run("package missing", func(t *testing.T) {
		client := NewClientWithRunner("", func(_ context.Context, _ string, args ...string) ([]byte, error) {
			if args[len(args)-1] == "ro.build.version.sdk" {
				return []byte("30"), nil
			}
			return []byte("Unable to find package: com.example.app"), nil
		})
		if _, err := client.Snapshot(context.Background(), "com.example.app"); !errors.Is(err, ErrPackageNotFound) {
			t.Errorf("err = %v, want ErrPackageNotFound", err)
		}
	})
}

func TestClientReverse(t *testing.T) {
	var got []string
	client := NewClientWithRunner("R58M", func(_ context.Context, _ string, args ...string) ([]byte, error) {
		got = args
		return nil, nil
	})
	if err := client.Reverse(context.Background(), 12345); err != nil {
		t.Fatal(err)
	}
	want := []string{"-s", "R58M", "reverse", "tcp:12345", "tcp:12345"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}

	adbErr := errors.New("more than one device")
	client = NewClientWithRunner("", func(context.Context, string, ...string) ([]byte, error) {
		return nil, adbErr
	})
	if err := client.Reverse(context.Background(), 12345); !errors.Is(err, adbErr) {
		t.Errorf("err = %v, want wrapped adb error", err)
	}
}

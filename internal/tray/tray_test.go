package tray

import (
	"context"
	"errors"
	"testing"

	"github.com/ayusman/attention/internal/printclient"
	"github.com/ayusman/attention/internal/store"
)

type fakeTracking struct{ enabled bool }

func (f *fakeTracking) SetEnabled(enabled bool) { f.enabled = enabled }
func (f *fakeTracking) IsEnabled() bool         { return f.enabled }

type fakeSettings struct {
	values map[string]bool
	err    error
}

func (f *fakeSettings) SetBool(key string, value bool) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

type fakePrinter struct {
	got  printclient.Request
	resp *printclient.Response
	err  error
}

func (f *fakePrinter) Print(ctx context.Context, req printclient.Request) (*printclient.Response, error) {
	f.got = req
	return f.resp, f.err
}

func TestTray_Toggle(t *testing.T) {
	tr := New(true)

	var calls []bool
	tr.OnToggle(func(enabled bool) { calls = append(calls, enabled) })

	tr.handleToggle()
	tr.handleToggle()
	tr.handleToggle()

	if tr.IsEnabled() {
		t.Error("expected disabled after three toggles")
	}
	want := []bool{false, true, false}
	if len(calls) != len(want) {
		t.Fatalf("callback calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestTray_MenuUpdatesBeforeReady(t *testing.T) {
	tr := New(false)
	// Menu items do not exist until Run; updates must be safe no-ops.
	tr.SetLastEvent("kick_event")
	tr.SetLastEvent("")
	tr.SetStatus("ok")

	if tr.IsEnabled() {
		t.Error("expected initial state to be disabled")
	}
}

func TestActions_SetTracking(t *testing.T) {
	tracking := &fakeTracking{enabled: true}
	settings := &fakeSettings{values: map[string]bool{}}
	a := &Actions{Tracking: tracking, Settings: settings}

	a.SetTracking(false)

	if tracking.IsEnabled() {
		t.Error("tracking should be disabled")
	}
	if v, ok := settings.values[store.SettingTrackingEnabled]; !ok || v {
		t.Errorf("persisted value = %v (present %v), want false", v, ok)
	}

	// A settings failure still switches tracking.
	settings.err = errors.New("read-only")
	a.SetTracking(true)
	if !tracking.IsEnabled() {
		t.Error("tracking should be enabled despite settings error")
	}
}

func TestActions_PrintTestSlip(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		p := &fakePrinter{resp: &printclient.Response{Status: "success", Msg: "已加入佇列", ID: "j1"}}
		a := &Actions{Printer: p}

		msg, err := a.PrintTestSlip(context.Background())
		if err != nil {
			t.Fatalf("PrintTestSlip() error = %v", err)
		}
		if msg != "已加入佇列" {
			t.Errorf("msg = %q", msg)
		}
		if p.got != TestSlip {
			t.Errorf("sent %+v, want %+v", p.got, TestSlip)
		}
	})

	t.Run("rejected keeps server message", func(t *testing.T) {
		p := &fakePrinter{
			resp: &printclient.Response{Status: "error", Msg: "無法連接印表機"},
			err:  printclient.ErrPrintRejected,
		}
		a := &Actions{Printer: p}

		msg, err := a.PrintTestSlip(context.Background())
		if !errors.Is(err, printclient.ErrPrintRejected) {
			t.Fatalf("error = %v, want ErrPrintRejected", err)
		}
		if msg != "無法連接印表機" {
			t.Errorf("msg = %q", msg)
		}
	})

	t.Run("no printer", func(t *testing.T) {
		a := &Actions{}
		if _, err := a.PrintTestSlip(context.Background()); err == nil {
			t.Error("expected error without a printer")
		}
	})
}

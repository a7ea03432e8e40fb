package log

import (
	"bytes"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	SetColors(false)
	t.Cleanup(func() {
		SetOutput(nil, nil)
		SetColors(true)
		SetVerbose(false)
	})
	return &out, &errOut
}

func TestLevels(t *testing.T) {
	out, errOut := captureOutput(t)

	Debugf("hidden %d", 1)
	Infof("info %d", 2)
	Warnf("warn %d", 3)
	Errorf("error %d", 4)

	if strings.Contains(out.String(), "hidden") {
		t.Errorf("debug output should be suppressed without verbose, got %q", out.String())
	}
	if !strings.Contains(out.String(), "[INF] info 2") {
		t.Errorf("expected info line, got %q", out.String())
	}
	if !strings.Contains(out.String(), "[WRN] warn 3") {
		t.Errorf("expected warn line, got %q", out.String())
	}
	if strings.Contains(out.String(), "error 4") {
		t.Errorf("error line must not go to stdout")
	}
	if !strings.Contains(errOut.String(), "[ERR] error 4") {
		t.Errorf("expected error line on stderr, got %q", errOut.String())
	}
}

func TestVerboseAndNamed(t *testing.T) {
	out, _ := captureOutput(t)
	SetVerbose(true)

	Named("router").Debugf("trying %s", "WS01")

	if got := out.String(); got != "[DBG] [router] trying WS01\n" {
		t.Errorf("unexpected output %q", got)
	}
}

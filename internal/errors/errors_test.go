package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CategoryRender, SeverityFatal, "duplicate output path")
	if got := err.Error(); !strings.Contains(got, "render") || !strings.Contains(got, "duplicate output path") {
		t.Errorf("unexpected error string: %s", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := WriteError(cause, "write index.html")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("cause missing from message: %s", err.Error())
	}
}

func TestCategoryHelpers(t *testing.T) {
	err := SourceUnavailable(stderrors.New("connection refused"), "enumerate releases")
	if !IsCategory(err, CategorySource) {
		t.Error("expected source category")
	}
	if GetCategory(err) != CategorySource {
		t.Errorf("GetCategory = %s", GetCategory(err))
	}
	if GetCategory(stderrors.New("plain")) != CategoryInternal {
		t.Error("plain errors should classify as internal")
	}
}

func TestMalformedEntryIsWarning(t *testing.T) {
	err := MalformedEntry("release 'not-a-version': invalid version identifier")
	if err.Severity != SeverityWarning {
		t.Errorf("expected warning severity, got %s", err.Severity)
	}
}

func TestWithContext(t *testing.T) {
	err := RenderError("duplicate page").WithContext("path", "index.html")
	if err.Context["path"] != "index.html" {
		t.Error("context field not recorded")
	}
}

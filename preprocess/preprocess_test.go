package preprocess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunDefine(t *testing.T) {
	p := New(".")
	out, err := p.Run("#define MAX 100\nint x = MAX;\n")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !strings.Contains(out, "int x = 100;") {
		t.Errorf("Run() = %q, want substitution of MAX -> 100", out)
	}
}

func TestRunInclude(t *testing.T) {
	dir := t.TempDir()
	includePath := filepath.Join(dir, "lib.h")
	if err := os.WriteFile(includePath, []byte("int helper() { return 1; }\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	p := New(dir)
	out, err := p.Run(`#include "lib.h"` + "\nint main() { return helper(); }\n")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !strings.Contains(out, "int helper() { return 1; }") {
		t.Errorf("Run() = %q, want included file contents", out)
	}
}

func TestRunIfdefActive(t *testing.T) {
	p := New(".")
	out, err := p.Run("#define DEBUG\n#ifdef DEBUG\nint debugFlag = 1;\n#endif\n")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !strings.Contains(out, "int debugFlag = 1;") {
		t.Errorf("Run() = %q, want ifdef body retained", out)
	}
}

func TestRunIfdefInactive(t *testing.T) {
	p := New(".")
	out, err := p.Run("#ifdef DEBUG\nint debugFlag = 1;\n#endif\nint x = 0;\n")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if strings.Contains(out, "debugFlag") {
		t.Errorf("Run() = %q, want ifdef body dropped when DEBUG is undefined", out)
	}
	if !strings.Contains(out, "int x = 0;") {
		t.Errorf("Run() = %q, want code outside the block retained", out)
	}
}

func TestRunIfndef(t *testing.T) {
	p := New(".")
	out, err := p.Run("#ifndef RELEASE\nint devOnly = 1;\n#endif\n")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !strings.Contains(out, "int devOnly = 1;") {
		t.Errorf("Run() = %q, want ifndef body retained when RELEASE is undefined", out)
	}
}

func TestRunUnbalancedEndif(t *testing.T) {
	p := New(".")
	_, err := p.Run("#endif\n")
	if err == nil {
		t.Fatal("Run() expected an error for an unmatched #endif")
	}
}

func TestRunUnbalancedIfdef(t *testing.T) {
	p := New(".")
	_, err := p.Run("#ifdef DEBUG\nint x = 1;\n")
	if err == nil {
		t.Fatal("Run() expected an error for an #ifdef never closed with #endif")
	}
}

func TestRunMissingInclude(t *testing.T) {
	p := New(t.TempDir())
	_, err := p.Run(`#include "does-not-exist.h"` + "\n")
	if err == nil {
		t.Fatal("Run() expected an error for a missing include file")
	}
}

package openwrt

import (
	"context"
	"strings"
	"testing"

	openwrtv1 "github.com/honeybbq/netjson/gen/go/netjson/openwrt/v1"

	"google.golang.org/protobuf/encoding/protojson"

	"github.com/honeybbq/uci/pkg/bundle"
	"github.com/honeybbq/uci/pkg/ucierrors"
)

func renderJSON(t *testing.T, raw string, opts bundle.RenderOptions) (*bundle.Bundle, error) {
	t.Helper()
	var msg openwrtv1.OpenWrtConfig
	if err := protojson.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal netjson: %v", err)
	}
	return New().ToNative(context.Background(), &msg, opts)
}

func TestToNative(t *testing.T) {
	t.Parallel()

	out, err := renderJSON(t, `{
		"general": {"hostname": "router"},
		"interfaces": [{
			"name": "lan",
			"addresses": [{"family": "ipv4", "proto": "static", "address": "192.168.1.1", "mask": 24}]
		}]
	}`, bundle.RenderOptions{})
	if err != nil {
		t.Fatalf("ToNative failed: %v", err)
	}

	if out.Metadata.Format != "uci" || out.Metadata.Backend != "openwrt" {
		t.Errorf("metadata = %+v", out.Metadata)
	}
	if len(out.Packages) != 2 {
		t.Fatalf("package count = %d, want 2 (system, network)", len(out.Packages))
	}

	byName := map[string]string{}
	for _, pkg := range out.Packages {
		byName[pkg.Name] = string(pkg.Content)
	}
	if !strings.Contains(byName["system"], "option hostname 'router'") {
		t.Errorf("system package:\n%s", byName["system"])
	}
	if !strings.Contains(byName["network"], "config interface 'lan'") {
		t.Errorf("network package:\n%s", byName["network"])
	}
	for name, content := range byName {
		if strings.Contains(content, "package ") {
			t.Errorf("%s content carries a package header:\n%s", name, content)
		}
	}
}

func TestToNativeWrongMessageType(t *testing.T) {
	t.Parallel()

	b := New()
	_, err := b.ToNative(context.Background(), nil, bundle.RenderOptions{})
	if !ucierrors.Is(err, ucierrors.KindInvalid) {
		t.Fatalf("error = %v, want invalid kind", err)
	}
}

func TestToNativeFiles(t *testing.T) {
	t.Parallel()

	out, err := renderJSON(t, `{
		"general": {"hostname": "router"},
		"files": [{
			"path": "/etc/crontabs/root",
			"mode": "0600",
			"contents": "* * * * * /sbin/fsync"
		}]
	}`, bundle.RenderOptions{})
	if err != nil {
		t.Fatalf("ToNative failed: %v", err)
	}
	if len(out.Files) != 1 {
		t.Fatalf("file count = %d, want 1", len(out.Files))
	}
	f := out.Files[0]
	if f.Path != "/etc/crontabs/root" {
		t.Errorf("path = %q", f.Path)
	}
	if f.Mode != 0o600 {
		t.Errorf("mode = %o, want 600", f.Mode)
	}
	if string(f.Content) != "* * * * * /sbin/fsync" {
		t.Errorf("content = %q", f.Content)
	}
}

func TestToNativeBadModeStrict(t *testing.T) {
	t.Parallel()

	raw := `{
		"general": {"hostname": "router"},
		"files": [{"path": "/tmp/x", "mode": "not-octal", "contents": "x"}]
	}`
	if _, err := renderJSON(t, raw, bundle.RenderOptions{Strict: true}); err == nil {
		t.Fatal("strict render should fail on an invalid file mode")
	}

	out, err := renderJSON(t, raw, bundle.RenderOptions{})
	if err != nil {
		t.Fatalf("lenient render failed: %v", err)
	}
	if len(out.Files) != 0 {
		t.Errorf("invalid file should be skipped, got %d files", len(out.Files))
	}
}

func TestDefaultFileMode(t *testing.T) {
	t.Parallel()

	mode, err := parseFileMode("")
	if err != nil || mode != 0o644 {
		t.Fatalf("parseFileMode(\"\") = %o, %v", mode, err)
	}
}

func TestGenerationTag(t *testing.T) {
	t.Parallel()

	out, err := renderJSON(t, `{"general": {"hostname": "router"}}`,
		bundle.RenderOptions{GenerationTag: "v1.2.3"})
	if err != nil {
		t.Fatalf("ToNative failed: %v", err)
	}
	if out.Metadata.Custom["generation"] != "v1.2.3" {
		t.Errorf("metadata custom = %v", out.Metadata.Custom)
	}
}

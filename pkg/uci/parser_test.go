package uci

import (
	"errors"
	"strings"
	"testing"

	"github.com/honeybbq/uci/pkg/ucierrors"
)

const networkConfig = `
config interface 'lan'
	option ifname 'eth0'
	option proto 'static'
	option ipaddr '192.168.1.1'

config interface
	option ifname 'eth1'
	option proto 'dhcp'

config route
	option interface 'lan'
	option target '10.0.0.0'
	option netmask '255.0.0.0'
	list gateway '192.168.1.254'
	list gateway '192.168.1.253'
`

func TestImportBasic(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pkg, err := ctx.Import(strings.NewReader(networkConfig), "network")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if pkg.Name() != "network" {
		t.Fatalf("package name = %q, want network", pkg.Name())
	}
	if got := len(pkg.Sections()); got != 3 {
		t.Fatalf("section count = %d, want 3", got)
	}

	lan := pkg.Section("lan")
	if lan == nil {
		t.Fatal("section lan not found")
	}
	if lan.Anonymous() {
		t.Error("lan should not be anonymous")
	}
	if lan.Type() != "interface" {
		t.Errorf("lan type = %q, want interface", lan.Type())
	}
	if got := lan.Value("ifname"); got != "eth0" {
		t.Errorf("lan.ifname = %q, want eth0", got)
	}

	anon := pkg.Sections()[1]
	if !anon.Anonymous() {
		t.Error("second section should be anonymous")
	}
	if anon.Name() == "" {
		t.Error("anonymous section has no synthesized name")
	}
	if got := anon.Value("ifname"); got != "eth1" {
		t.Errorf("anonymous ifname = %q, want eth1", got)
	}

	route := pkg.Sections()[2]
	gw := route.Option("gateway")
	if gw == nil || !gw.IsList() {
		t.Fatal("gateway should be a list option")
	}
	if got := len(gw.Values()); got != 2 {
		t.Fatalf("gateway values = %d, want 2", got)
	}
	if gw.Values()[0] != "192.168.1.254" || gw.Values()[1] != "192.168.1.253" {
		t.Errorf("gateway values = %v", gw.Values())
	}
}

func TestImportKeepsSectionOrder(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pkg, err := ctx.Import(strings.NewReader(networkConfig), "network")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var types []string
	for _, s := range pkg.Sections() {
		types = append(types, s.Type())
	}
	want := []string{"interface", "interface", "route"}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("section types = %v, want %v", types, want)
		}
	}
}

func TestImportPackageLine(t *testing.T) {
	t.Parallel()

	input := `package system

config system
	option hostname 'router'

package network

config interface 'lan'
	option proto 'static'
`
	ctx := NewContext()
	pkg, err := ctx.Import(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if pkg.Name() != "network" {
		t.Fatalf("returned package = %q, want network (last declared)", pkg.Name())
	}
	if ctx.Package("system") == nil {
		t.Fatal("system package not loaded")
	}
	if got := ctx.Package("system").Sections()[0].Value("hostname"); got != "router" {
		t.Errorf("hostname = %q, want router", got)
	}
	if got := len(ctx.Packages()); got != 2 {
		t.Fatalf("loaded packages = %d, want 2", got)
	}
}

func TestImportReplacesSameName(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	if _, err := ctx.Import(strings.NewReader("config system\n\toption hostname 'old'\n"), "system"); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	old := ctx.Package("system")
	if _, err := ctx.Import(strings.NewReader("config system\n\toption hostname 'new'\n"), "system"); err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if got := len(ctx.Packages()); got != 1 {
		t.Fatalf("loaded packages = %d, want 1", got)
	}
	if old.Context() != nil {
		t.Error("replaced package should be detached")
	}
	if got := ctx.Package("system").Sections()[0].Value("hostname"); got != "new" {
		t.Errorf("hostname = %q, want new", got)
	}
}

func TestImportWithoutPackageName(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	_, err := ctx.Import(strings.NewReader("config interface 'lan'\n"), "")
	if err == nil {
		t.Fatal("expected error for headerless stream without a name")
	}
	var pe *ucierrors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if pe.Reason != "attempting to import a file without a package name" {
		t.Errorf("reason = %q", pe.Reason)
	}
	if pe.Line != 1 {
		t.Errorf("line = %d, want 1", pe.Line)
	}
}

func TestImportEmptyStream(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	_, err := ctx.Import(strings.NewReader("\n# only a comment\n"), "network")
	if !ucierrors.Is(err, ucierrors.KindParse) {
		t.Fatalf("error = %v, want parse kind", err)
	}
}

func TestImportDuplicateOptionReplaces(t *testing.T) {
	t.Parallel()

	input := `config interface 'lan'
	option proto 'static'
	option proto 'dhcp'
`
	ctx := NewContext()
	pkg, err := ctx.Import(strings.NewReader(input), "network")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	lan := pkg.Section("lan")
	if got := len(lan.Options()); got != 1 {
		t.Fatalf("option count = %d, want 1", got)
	}
	if got := lan.Value("proto"); got != "dhcp" {
		t.Errorf("proto = %q, want dhcp (last wins)", got)
	}
}

func TestImportListAfterOptionConverts(t *testing.T) {
	t.Parallel()

	input := `config dnsmasq
	option server '8.8.8.8'
	list server '1.1.1.1'
`
	ctx := NewContext()
	pkg, err := ctx.Import(strings.NewReader(input), "dhcp")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	o := pkg.Sections()[0].Option("server")
	if !o.IsList() {
		t.Fatal("server should have been converted to a list")
	}
	if got := len(o.Values()); got != 2 {
		t.Fatalf("values = %v, want 2 entries", o.Values())
	}
}

func TestImportQuoting(t *testing.T) {
	t.Parallel()

	input := `config system
	option description 'two words'
	option motd "double quoted"
	option mixed 'it\'s here'
	option escaped back\ slash    # trailing comment
`
	ctx := NewContext()
	pkg, err := ctx.Import(strings.NewReader(input), "test")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	s := pkg.Sections()[0]
	cases := map[string]string{
		"description": "two words",
		"motd":        "double quoted",
		"mixed":       "it's here",
		"escaped":     "back slash",
	}
	for name, want := range cases {
		if got := s.Value(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestImportParseErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		input  string
		reason string
		line   int
	}{
		{"unknown keyword", "config system\nfrobnicate x\n", "unrecognized command", 2},
		{"missing section type", "config\n", "missing section type", 1},
		{"invalid section type", "config my.type\n", "invalid section type", 1},
		{"invalid section name", "config interface 'bad name'\n", "invalid section name", 1},
		{"duplicate section", "config interface 'lan'\nconfig interface 'lan'\n", "duplicate section name", 2},
		{"option before section", "option x '1'\n", "option/list command found before the first section", 1},
		{"missing option value", "config system\n\toption hostname\n", "missing option value", 2},
		{"too many arguments", "config interface 'lan' extra\n", "too many arguments", 1},
		{"unterminated quote", "config system\n\toption a 'oops\n", "unterminated quote", 2},
		{"trailing backslash", "config system\n\toption a value\\\n", "invalid escape sequence", 2},
		{"missing package name", "package\n", "missing package name", 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := NewContext()
			_, err := ctx.Import(strings.NewReader(tc.input), "test")
			if err == nil {
				t.Fatal("expected parse error")
			}
			var pe *ucierrors.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type = %T, want *ParseError: %v", err, err)
			}
			if pe.Reason != tc.reason {
				t.Errorf("reason = %q, want %q", pe.Reason, tc.reason)
			}
			if pe.Line != tc.line {
				t.Errorf("line = %d, want %d", pe.Line, tc.line)
			}
			if ucierrors.KindOf(err) != ucierrors.KindParse {
				t.Errorf("kind = %q, want parse", ucierrors.KindOf(err))
			}
		})
	}
}

func TestImportFailureInsertsNothing(t *testing.T) {
	t.Parallel()

	input := `config interface 'lan'
	option proto 'static'
nonsense
`
	ctx := NewContext()
	if _, err := ctx.Import(strings.NewReader(input), "network"); err == nil {
		t.Fatal("expected parse error")
	}
	if ctx.Package("network") != nil {
		t.Error("failed import must not insert a package")
	}
	if ctx.LastError() == nil {
		t.Error("last error not recorded")
	}
}

func TestImportFailureErrorString(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	_, err := ctx.Import(strings.NewReader("garbage line\n"), "network")
	if err == nil {
		t.Fatal("expected parse error")
	}
	msg := ctx.ErrorString("uci")
	if !strings.Contains(msg, "uci: ") || !strings.Contains(msg, "line 1") {
		t.Errorf("ErrorString = %q, want prefix and line info", msg)
	}
}

func TestImportInvalidName(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	_, err := ctx.Import(strings.NewReader("config system\n"), "bad/name")
	if !ucierrors.Is(err, ucierrors.KindInvalid) {
		t.Fatalf("error = %v, want invalid kind", err)
	}
}

func TestImportHistoryEmptyAfterParse(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pkg, err := ctx.Import(strings.NewReader(networkConfig), "network")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if got := len(pkg.Changes()); got != 0 {
		t.Fatalf("history after parse = %d records, want 0", got)
	}
}

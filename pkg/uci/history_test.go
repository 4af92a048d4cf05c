package uci

import (
	"bytes"
	"strings"
	"testing"
)

func loadNetwork(t *testing.T, ctx *Context) *Package {
	t.Helper()
	input := `config interface 'lan'
	option proto 'static'
	option ifname 'eth0'

config interface 'wan'
	option proto 'dhcp'
`
	pkg, err := ctx.Import(strings.NewReader(input), "network")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	return pkg
}

func TestHistoryRecordsEdits(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pkg := loadNetwork(t, ctx)

	lan := pkg.Section("lan")
	lan.Set("proto", "dhcp")                  // change
	guest, _ := pkg.AddSection("interface", "guest") // add section
	guest.AddOption("proto", "none")          // add option
	lan.AddList("dns", "8.8.8.8")             // add list
	lan.AddList("dns", "1.1.1.1")             // append

	changes := pkg.Changes()
	wantCmds := []Command{CommandChange, CommandAdd, CommandAdd, CommandAdd, CommandChange}
	if len(changes) != len(wantCmds) {
		t.Fatalf("change count = %d, want %d", len(changes), len(wantCmds))
	}
	for i, c := range changes {
		if c.Cmd != wantCmds[i] {
			t.Errorf("changes[%d].Cmd = %v, want %v", i, c.Cmd, wantCmds[i])
		}
	}
	if !changes[4].Append {
		t.Error("list append not flagged")
	}
	if changes[0].OldValues[0] != "static" {
		t.Errorf("change record snapshot = %v", changes[0].OldValues)
	}
}

func TestHistoryDetachedPackageRecordsNothing(t *testing.T) {
	t.Parallel()

	pkg := NewPackage("network")
	s, _ := pkg.AddSection("interface", "lan")
	s.AddOption("proto", "static")
	s.Set("proto", "dhcp")
	if got := len(pkg.Changes()); got != 0 {
		t.Fatalf("detached package history = %d records, want 0", got)
	}
}

func TestRevertRestoresParsedState(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pkg := loadNetwork(t, ctx)

	var baseline bytes.Buffer
	if err := pkg.Serialize(&baseline, false); err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	lan := pkg.Section("lan")
	lan.Set("proto", "dhcp")
	lan.AddList("dns", "8.8.8.8")
	lan.AddList("dns", "1.1.1.1")
	guest, _ := pkg.AddSection("interface", "guest")
	guest.AddOption("proto", "none")
	ctx.Delete(lan.Option("ifname"))
	ctx.Delete(pkg.Section("wan"))
	lan.Rename("lan0")

	if err := pkg.Revert(); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if got := len(pkg.Changes()); got != 0 {
		t.Errorf("history after revert = %d records, want 0", got)
	}

	var after bytes.Buffer
	if err := pkg.Serialize(&after, false); err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	if baseline.String() != after.String() {
		t.Errorf("revert did not restore parsed state:\n--- before\n%s--- after\n%s", baseline.String(), after.String())
	}
}

func TestRevertRestoresRemovalOrder(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pkg := loadNetwork(t, ctx)

	// Remove the first section, then revert; it must come back in front.
	ctx.Delete(pkg.Section("lan"))
	if pkg.Sections()[0].Name() != "wan" {
		t.Fatal("wan should lead after removing lan")
	}
	if err := pkg.Revert(); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if pkg.Sections()[0].Name() != "lan" {
		t.Errorf("section order after revert = %v", sectionNames(pkg))
	}
}

func sectionNames(p *Package) []string {
	var names []string
	for _, s := range p.Sections() {
		names = append(names, s.Name())
	}
	return names
}

func TestExportChanges(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pkg := loadNetwork(t, ctx)

	lan := pkg.Section("lan")
	lan.Set("proto", "dhcp")
	guest, _ := pkg.AddSection("interface", "guest")
	guest.AddOption("proto", "none")
	lan.AddList("dns", "8.8.8.8")
	lan.AddList("dns", "1.1.1.1")
	ctx.Delete(lan.Option("ifname"))
	ctx.Delete(pkg.Section("wan"))
	guest.Rename("dmz")

	var out bytes.Buffer
	if err := ctx.ExportChanges(&out, pkg); err != nil {
		t.Fatalf("ExportChanges failed: %v", err)
	}
	want := `network.lan.proto=dhcp
network.guest=interface
network.guest.proto=none
network.lan.dns=8.8.8.8
network.lan.dns+=1.1.1.1
-network.lan.ifname
-network.wan
@network.guest=dmz
`
	if out.String() != want {
		t.Errorf("changes output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestExportChangesAllPackages(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	ctx.Import(strings.NewReader("config system\n\toption hostname 'a'\n"), "system")
	pkg := loadNetwork(t, ctx)
	ctx.Package("system").Sections()[0].Set("hostname", "b")
	pkg.Section("lan").Set("proto", "dhcp")

	var out bytes.Buffer
	if err := ctx.ExportChanges(&out, nil); err != nil {
		t.Fatalf("ExportChanges failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %v, want 2 entries", lines)
	}
	if !strings.HasPrefix(lines[0], "system.") || !strings.HasPrefix(lines[1], "network.") {
		t.Errorf("packages out of load order: %v", lines)
	}
}

func TestOptionRenameChangeLine(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pkg := loadNetwork(t, ctx)
	pkg.Section("lan").Option("ifname").Rename("device")

	var out bytes.Buffer
	if err := ctx.ExportChanges(&out, pkg); err != nil {
		t.Fatalf("ExportChanges failed: %v", err)
	}
	want := "@network.lan.ifname=device\n"
	if out.String() != want {
		t.Errorf("rename line = %q, want %q", out.String(), want)
	}
}

func TestCommandString(t *testing.T) {
	t.Parallel()

	cases := map[Command]string{
		CommandAdd:    "add",
		CommandRemove: "remove",
		CommandChange: "change",
		CommandRename: "rename",
		Command(99):   "unknown",
	}
	for cmd, want := range cases {
		if got := cmd.String(); got != want {
			t.Errorf("Command(%d).String() = %q, want %q", cmd, got, want)
		}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	openwrtv1 "github.com/honeybbq/netjson/gen/go/netjson/openwrt/v1"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	openwrtbackend "github.com/honeybbq/uci/backend/openwrt"
	"github.com/honeybbq/uci/pkg/bundle"
	"github.com/honeybbq/uci/pkg/confdir"
	"github.com/honeybbq/uci/pkg/uci"
)

type backendEntry struct {
	backend    bundle.Backend
	newMessage func() proto.Message
}

func main() {
	var (
		mode         = flag.String("mode", "format", "operation mode: format | get | show | changes | render")
		backendName  = flag.String("backend", "openwrt", "backend name for render mode")
		inputPath    = flag.String("input", "", "input path (default: stdin)")
		templates    = flag.String("templates", "", "comma-separated template JSON files merged under the input (render mode)")
		outputPath   = flag.String("output", "", "output path (default: stdout)")
		filesOutDir  = flag.String("files-dir", "", "directory for additional files (render mode)")
		configDir    = flag.String("config-dir", confdir.DefaultPath, "configuration directory for get/show/changes")
		packageName  = flag.String("name", "", "package name for format mode input")
		withHeader   = flag.Bool("header", false, "emit package headers when exporting")
		verbose      = flag.Bool("verbose", false, "enable debug logging")
		listBackends = flag.Bool("list-backends", false, "list supported backends")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	registry := buildRegistry()
	if *listBackends {
		printBackends(registry)
		return
	}

	var err error
	switch strings.ToLower(*mode) {
	case "format":
		err = runFormat(*inputPath, *outputPath, *packageName, *withHeader)
	case "get":
		err = runGet(*configDir, flag.Arg(0), logger)
	case "show":
		err = runShow(*configDir, flag.Arg(0), *outputPath, logger)
	case "changes":
		err = runChanges(*configDir, flag.Arg(0), *outputPath, logger)
	case "render":
		err = runRender(registry, *backendName, *inputPath, *templates, *outputPath, *filesOutDir)
	default:
		err = fmt.Errorf("unknown mode %q (use format|get|show|changes|render)", *mode)
	}
	if err != nil {
		exitWithError(err)
	}
}

func buildRegistry() map[string]backendEntry {
	return map[string]backendEntry{
		"openwrt": {
			backend:    openwrtbackend.New(),
			newMessage: func() proto.Message { return &openwrtv1.OpenWrtConfig{} },
		},
	}
}

func printBackends(registry map[string]backendEntry) {
	fmt.Println("Supported backends:")
	for name := range registry {
		fmt.Printf("  - %s\n", name)
	}
}

// runFormat reads configuration text and writes it back in canonical form.
func runFormat(inputPath, outputPath, name string, header bool) error {
	data, err := readInput(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if name == "" {
		name = deriveName(inputPath)
	}
	ctx := uci.NewContext()
	pkg, err := ctx.Import(strings.NewReader(string(data)), name)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	var out strings.Builder
	if err := pkg.Serialize(&out, header); err != nil {
		return err
	}
	return writeOutput(outputPath, []byte(out.String()))
}

// runGet resolves a pkg[.section[.option]] tuple like `uci get` does.
func runGet(dir, tuple string, logger *logrus.Logger) error {
	if tuple == "" {
		return errors.New("get requires a package.section.option argument")
	}
	ctx, err := newDirContext(dir, logger)
	if err != nil {
		return err
	}
	defer ctx.Close()

	pkgName, sectionName, optionName := splitTuple(tuple)
	if _, err := ctx.Load(pkgName); err != nil {
		return err
	}
	element, err := ctx.Lookup(pkgName, sectionName, optionName)
	if err != nil {
		return err
	}
	switch v := element.(type) {
	case *uci.Option:
		if v.IsList() {
			fmt.Println(strings.Join(v.Values(), " "))
		} else {
			fmt.Println(v.Value())
		}
	case *uci.Section:
		fmt.Println(v.Type())
	case *uci.Package:
		for _, s := range v.Sections() {
			fmt.Println(s.Name())
		}
	}
	return nil
}

// runShow exports one package, or every package in the directory.
func runShow(dir, name, outputPath string, logger *logrus.Logger) error {
	ctx, err := newDirContext(dir, logger)
	if err != nil {
		return err
	}
	defer ctx.Close()

	names := []string{name}
	if name == "" {
		names, err = ctx.ListConfigs()
		if err != nil {
			return err
		}
	}
	var out strings.Builder
	for _, n := range names {
		if _, err := ctx.Load(n); err != nil {
			return err
		}
	}
	if err := ctx.Export(&out, nil); err != nil {
		return err
	}
	return writeOutput(outputPath, []byte(out.String()))
}

// runChanges prints staged edits for a package in delta form. A freshly
// loaded package has none; the mode exists for callers that script edits
// through the library and shell out for display.
func runChanges(dir, name, outputPath string, logger *logrus.Logger) error {
	if name == "" {
		return errors.New("changes requires a package name argument")
	}
	ctx, err := newDirContext(dir, logger)
	if err != nil {
		return err
	}
	defer ctx.Close()

	pkg, err := ctx.Load(name)
	if err != nil {
		return err
	}
	var out strings.Builder
	if err := ctx.ExportChanges(&out, pkg); err != nil {
		return err
	}
	return writeOutput(outputPath, []byte(out.String()))
}

func runRender(registry map[string]backendEntry, backendName, inputPath, templates, outputPath, filesDir string) error {
	entry, ok := registry[strings.ToLower(backendName)]
	if !ok {
		return fmt.Errorf("unknown backend %q", backendName)
	}
	payload, err := readInput(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if templates != "" {
		// Template layers merge first; the device input wins.
		var layers [][]byte
		for _, path := range strings.Split(templates, ",") {
			layer, err := os.ReadFile(strings.TrimSpace(path))
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			layers = append(layers, layer)
		}
		layers = append(layers, payload)
		payload, err = bundle.MergeJSON(layers, nil)
		if err != nil {
			return fmt.Errorf("merge templates: %w", err)
		}
	}
	message := entry.newMessage()
	unmarshal := protojson.UnmarshalOptions{
		DiscardUnknown: false,
	}
	if err := unmarshal.Unmarshal(payload, message); err != nil {
		return fmt.Errorf("decode netjson: %w", err)
	}
	out, err := entry.backend.ToNative(context.Background(), message, bundle.RenderOptions{})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if outputPath == "" || outputPath == "-" {
		return writeBundle(os.Stdout, out)
	}
	return writeBundleToFiles(outputPath, filesDir, out)
}

func newDirContext(dir string, logger *logrus.Logger) (*uci.Context, error) {
	store := confdir.New(afero.NewOsFs(), dir)
	store.Logger = logger
	return uci.NewContext(uci.WithStore(store)), nil
}

// splitTuple breaks "pkg.section.option" into its parts. Missing trailing
// parts stay empty.
func splitTuple(tuple string) (string, string, string) {
	parts := strings.SplitN(tuple, ".", 3)
	switch len(parts) {
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], parts[1], parts[2]
	}
}

func deriveName(path string) string {
	if path == "" || path == "-" {
		return "main"
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return "main"
	}
	return base
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
			_, err = fmt.Fprintln(os.Stdout)
		}
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeBundle 将 bundle 输出到 writer（用于 stdout）
func writeBundle(w *os.File, out *bundle.Bundle) error {
	for i, pkg := range out.Packages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "package %s\n\n", pkg.Name)
		if _, err := w.Write(pkg.Content); err != nil {
			return err
		}
	}
	return nil
}

// writeBundleToFiles 将 bundle 写入文件系统
func writeBundleToFiles(mainOut, filesDir string, out *bundle.Bundle) error {
	baseDir := mainOut
	if baseDir == "" {
		baseDir = "."
	}
	fs := afero.NewOsFs()
	dir := confdir.New(fs, filepath.Join(baseDir, "etc", "config"))
	for _, pkg := range out.Packages {
		if err := dir.Write(pkg.Name, pkg.Content); err != nil {
			return fmt.Errorf("write package file %q: %w", pkg.Name, err)
		}
	}

	if len(out.Files) > 0 {
		if err := writeBundleFiles(filesDir, out.Files); err != nil {
			return err
		}
	}
	return nil
}

// writeBundleFiles 写入附加文件
func writeBundleFiles(dir string, files []bundle.File) error {
	if dir == "" {
		return fmt.Errorf("additional files produced; specify -files-dir to write them")
	}
	for _, file := range files {
		if file.Path == "" {
			continue
		}
		rel := strings.TrimPrefix(file.Path, "/")
		rel = strings.TrimPrefix(rel, string(filepath.Separator))
		if rel == "" {
			return fmt.Errorf("invalid additional file path %q", file.Path)
		}
		target := filepath.Join(dir, filepath.Clean(rel))
		if !strings.HasPrefix(target, filepath.Clean(dir)) {
			return fmt.Errorf("additional file escapes files-dir: %q", file.Path)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directories for %q: %w", target, err)
		}
		mode := file.Mode
		if mode == 0 {
			mode = 0o644
		}
		if err := os.WriteFile(target, file.Content, mode); err != nil {
			return fmt.Errorf("write additional file %q: %w", target, err)
		}
	}
	return nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

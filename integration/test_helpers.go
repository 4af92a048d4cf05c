package integration

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/honeybbq/uci/pkg/bundle"
	"github.com/honeybbq/uci/pkg/confdir"
	"github.com/honeybbq/uci/pkg/uci"
)

// bundleToText 将 Bundle 转换为文本格式（用于测试对比），
// 每个包前加 package 行。
func bundleToText(b *bundle.Bundle) string {
	var sb strings.Builder
	for i, pkg := range b.Packages {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "package %s\n\n", pkg.Name)
		sb.Write(pkg.Content)
	}
	return sb.String()
}

// normalizeConfig 标准化配置文本用于比较
func normalizeConfig(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return text
}

// compareConfigs 比较配置内容，忽略首尾空白差异
func compareConfigs(got, want string) bool {
	return normalizeConfig(got) == normalizeConfig(want)
}

func formatConfigDiff(got, want string) string {
	return fmt.Sprintf("config mismatch\n--- got ---\n%s\n--- want ---\n%s\n",
		normalizeConfig(got), normalizeConfig(want))
}

// newMemDir builds an in-memory /etc/config populated with the given
// files, with its logger silenced.
func newMemDir(t *testing.T, files map[string]string) *confdir.Dir {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, "/etc/config/"+name, []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture %q: %v", name, err)
		}
	}
	dir := confdir.New(fs, "/etc/config")
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	dir.Logger = logger
	return dir
}

// newDirContext wires a context to an in-memory config directory.
func newDirContext(t *testing.T, files map[string]string) (*uci.Context, *confdir.Dir) {
	t.Helper()
	dir := newMemDir(t, files)
	ctx := uci.NewContext()
	ctx.SetStore(dir)
	t.Cleanup(ctx.Close)
	return ctx, dir
}

package openwrt

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"strconv"

	commonv1 "github.com/honeybbq/netjson/gen/go/netjson/common/v1"
	openwrtv1 "github.com/honeybbq/netjson/gen/go/netjson/openwrt/v1"

	"google.golang.org/protobuf/proto"

	domain "github.com/honeybbq/uci/domain/openwrt"
	"github.com/honeybbq/uci/pkg/bundle"
	"github.com/honeybbq/uci/pkg/ucierrors"
)

// Backend 实现 OpenWrt NetJSON → UCI 转换。
type Backend struct{}

// New 构造 Backend。
func New() *Backend {
	return &Backend{}
}

// Name 实现 Backend 接口。
func (b *Backend) Name() string {
	return "openwrt"
}

// ToNative renders an OpenWrtConfig message into UCI package files. The
// package graph is built through the domain layer, then serialized without
// package headers so each entry drops straight into /etc/config/<name>.
func (b *Backend) ToNative(ctx context.Context, cfg proto.Message, opts bundle.RenderOptions) (*bundle.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, ucierrors.New(ucierrors.KindInternal, err)
	}
	owrtCfg, ok := cfg.(*openwrtv1.OpenWrtConfig)
	if !ok {
		return nil, ucierrors.Newf(ucierrors.KindInvalid, "expected OpenWrtConfig payload")
	}
	domainCfg, err := domain.FromProto(owrtCfg)
	if err != nil {
		return nil, err
	}
	packages, files, err := domainCfg.ToPackages()
	if err != nil {
		return nil, err
	}

	out := bundle.New("uci", b.Name())
	if opts.GenerationTag != "" {
		out.Metadata.Custom["generation"] = opts.GenerationTag
	}
	for _, pkg := range packages {
		var buf bytes.Buffer
		if err := pkg.Serialize(&buf, false); err != nil {
			return nil, err
		}
		out.Packages = append(out.Packages, bundle.Package{
			Name:    pkg.Name(),
			Content: buf.Bytes(),
		})
	}

	for _, file := range files {
		if file == nil {
			continue
		}
		converted, err := convertIncludedFile(file)
		if err != nil {
			if opts.Strict {
				return nil, err
			}
			continue
		}
		out.Files = append(out.Files, converted)
	}
	return out, nil
}

func convertIncludedFile(file *commonv1.IncludedFile) (bundle.File, error) {
	mode, err := parseFileMode(file.GetMode())
	if err != nil {
		return bundle.File{}, err
	}
	if file.GetPath() == "" {
		return bundle.File{}, ucierrors.Newf(ucierrors.KindInvalid, "included file has no path")
	}
	return bundle.File{
		Path:    file.GetPath(),
		Mode:    mode,
		Content: []byte(file.GetContents()),
	}, nil
}

func parseFileMode(value string) (fs.FileMode, error) {
	if value == "" {
		return 0o644, nil
	}
	parsed, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0, ucierrors.New(ucierrors.KindInvalid, fmt.Errorf("invalid file mode %q: %w", value, err))
	}
	return fs.FileMode(parsed), nil
}

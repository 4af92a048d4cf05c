package openwrt

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	commonv1 "github.com/honeybbq/netjson/gen/go/netjson/common/v1"
	devicev1 "github.com/honeybbq/netjson/gen/go/netjson/device/v1"
	openwrtv1 "github.com/honeybbq/netjson/gen/go/netjson/openwrt/v1"

	helpers "github.com/honeybbq/uci/domain/utils"
	"github.com/honeybbq/uci/pkg/uci"
	"github.com/honeybbq/uci/pkg/ucierrors"
)

// Config 表示 OpenWrt 领域模型。
type Config struct {
	Message *openwrtv1.OpenWrtConfig
}

// FromProto 构造领域模型。
func FromProto(msg *openwrtv1.OpenWrtConfig) (*Config, error) {
	if msg == nil {
		return nil, ucierrors.Newf(ucierrors.KindInvalid, "config is nil")
	}
	return &Config{Message: msg}, nil
}

// ToPackages renders the NetJSON message into detached uci packages, one
// per target file under /etc/config, plus any auxiliary files the message
// carries. Packages are built through the uci mutation API so the output
// obeys the same naming and ordering rules as parsed configuration.
func (c *Config) ToPackages() ([]*uci.Package, []*commonv1.IncludedFile, error) {
	if c == nil || c.Message == nil {
		return nil, nil, ucierrors.Newf(ucierrors.KindInternal, "openwrt message is nil")
	}

	var packages []*uci.Package
	if pkg, err := buildSystemPackage(c.Message); err != nil {
		return nil, nil, err
	} else if pkg != nil {
		packages = append(packages, pkg)
	}
	if pkg, err := buildNetworkPackage(c.Message); err != nil {
		return nil, nil, err
	} else if pkg != nil {
		packages = append(packages, pkg)
	}

	if len(packages) == 0 {
		return nil, nil, ucierrors.Newf(ucierrors.KindInvalid, "no supported netjson fields found")
	}
	return packages, c.Message.GetFiles(), nil
}

func buildSystemPackage(msg *openwrtv1.OpenWrtConfig) (*uci.Package, error) {
	pkg := uci.NewPackage("system")

	if general := msg.GetGeneral(); general != nil {
		values := helpers.ProtoMessageToMap(general)
		// globals-only fields live in the network package
		delete(values, "ula_prefix")
		delete(values, "globals_id")
		if len(values) > 0 {
			section, err := pkg.AddSection("system", "system")
			if err != nil {
				return nil, err
			}
			helpers.ApplyOptionsFromMap(section, values, nil)
		}
	}

	if ntp := msg.GetNtp(); ntp != nil {
		section, err := pkg.AddSection("timeserver", "ntp")
		if err != nil {
			return nil, err
		}
		helpers.SetBool(section, "enabled", ntp.Enabled)
		helpers.SetBool(section, "enable_server", ntp.EnableServer)
		helpers.SetList(section, "servers", ntp.GetServers())
		helpers.SetStringPtr(section, "hostname", ntp.Hostname)
		helpers.SetUint32Ptr(section, "port", ntp.Port)
		helpers.SetList(section, "pools", ntp.GetPools())
		if helpers.Empty(section) {
			pkg = dropSection(pkg, section)
		}
	}

	if len(pkg.Sections()) == 0 {
		return nil, nil
	}
	return pkg, nil
}

func buildNetworkPackage(msg *openwrtv1.OpenWrtConfig) (*uci.Package, error) {
	pkg := uci.NewPackage("network")

	if general := msg.GetGeneral(); general != nil && general.GetUlaPrefix() != "" {
		name := "globals"
		if general.GetGlobalsId() != "" {
			name = general.GetGlobalsId()
		}
		section, err := pkg.AddSection("globals", name)
		if err != nil {
			return nil, err
		}
		helpers.SetString(section, "ula_prefix", general.GetUlaPrefix())
	}

	for _, iface := range msg.GetInterfaces() {
		if iface == nil || iface.GetName() == "" || iface.GetWireless() != nil {
			continue
		}
		if err := buildInterfaceSection(pkg, iface, msg); err != nil {
			return nil, err
		}
	}

	if err := buildRouteSections(pkg, msg.GetRoutes()); err != nil {
		return nil, err
	}

	if len(pkg.Sections()) == 0 {
		return nil, nil
	}
	return pkg, nil
}

func buildInterfaceSection(pkg *uci.Package, iface *devicev1.Interface, msg *openwrtv1.OpenWrtConfig) error {
	section, err := pkg.AddSection("interface", iface.GetName())
	if err != nil {
		return err
	}

	device := iface.GetDevice()
	if device == "" {
		device = iface.GetName()
	}
	helpers.SetString(section, "device", device)

	helpers.SetUint32Ptr(section, "mtu", iface.Mtu)
	helpers.SetUint32Ptr(section, "metric", iface.Metric)
	helpers.SetBool(section, "disabled", iface.Disabled)
	helpers.SetBool(section, "auto", iface.Autostart)
	helpers.SetBool(section, "ipv6", iface.Ipv6)
	if iface.Mac != nil && *iface.Mac != "" {
		helpers.SetString(section, "macaddr", *iface.Mac)
	}
	helpers.SetString(section, "proto", iface.GetProto())

	applyAddresses(section, iface)
	applyDNS(section, iface, msg)
	return nil
}

func applyAddresses(section *uci.Section, iface *devicev1.Interface) {
	protoSet := helpers.OptionExists(section, "proto")
	for _, addr := range iface.GetAddresses() {
		switch addr.GetFamily() {
		case "ipv4", "":
			if !protoSet && addr.GetProto() != "" {
				helpers.SetString(section, "proto", addr.GetProto())
				protoSet = true
			}
			if addr.GetProto() == "dhcp" {
				continue
			}
			if addr.GetAddress() != "" {
				helpers.SetString(section, "ipaddr", addr.GetAddress())
				if mask := addr.GetMask(); mask != 0 {
					helpers.SetString(section, "netmask", prefixToNetmask(mask))
				}
			}
			helpers.SetString(section, "gateway", addr.GetGateway())
		case "ipv6":
			if !protoSet && addr.GetProto() != "" {
				helpers.SetString(section, "proto", addr.GetProto())
				protoSet = true
			}
			if addr.GetProto() == "dhcpv6" {
				continue
			}
			if addr.GetAddress() != "" {
				value := addr.GetAddress()
				if mask := addr.GetMask(); mask != 0 {
					value = fmt.Sprintf("%s/%d", value, mask)
				}
				helpers.AppendList(section, "ip6addr", value)
			}
		}
	}
}

func applyDNS(section *uci.Section, iface *devicev1.Interface, msg *openwrtv1.OpenWrtConfig) {
	// 动态协议忽略全局 DNS
	proto := section.Value("proto")
	ignoreGlobal := proto == "dhcp" || proto == "dhcpv6" || proto == "none"

	dns := iface.GetDns()
	if len(dns) == 0 && !ignoreGlobal && msg != nil {
		dns = msg.GetDnsServers()
	}
	if len(dns) > 0 {
		helpers.SetString(section, "dns", strings.Join(dns, " "))
	}

	search := iface.GetDnsSearch()
	if len(search) == 0 && !ignoreGlobal && msg != nil {
		search = msg.GetDnsSearch()
	}
	if len(search) > 0 {
		helpers.SetString(section, "dns_search", strings.Join(search, " "))
	}
}

func buildRouteSections(pkg *uci.Package, routes []*devicev1.StaticRoute) error {
	counter := 1
	for _, route := range routes {
		if route == nil {
			continue
		}
		dest := route.GetDestination()
		isIPv6 := strings.Contains(dest, ":")
		sectionType := "route"
		if isIPv6 {
			sectionType = "route6"
		}
		name := route.GetName()
		if name == "" {
			name = fmt.Sprintf("route%d", counter)
		}
		counter++

		section, err := pkg.AddSection(sectionType, name)
		if err != nil {
			return err
		}
		helpers.SetString(section, "interface", route.GetDevice())
		helpers.SetString(section, "gateway", route.GetNext())
		helpers.SetString(section, "source", route.GetSource())
		helpers.SetString(section, "table", route.GetTable())
		helpers.SetUint32Ptr(section, "metric", route.Cost)
		helpers.SetUint32Ptr(section, "mtu", route.Mtu)
		helpers.SetBool(section, "onlink", route.Onlink)

		if isIPv6 {
			helpers.SetString(section, "target", dest)
		} else {
			target, netmask := splitIPv4Destination(dest)
			helpers.SetString(section, "target", target)
			helpers.SetString(section, "netmask", netmask)
		}
	}
	return nil
}

func splitIPv4Destination(dest string) (string, string) {
	if dest == "" {
		return "", ""
	}
	parts := strings.Split(dest, "/")
	if len(parts) == 2 {
		if prefix, err := strconv.Atoi(parts[1]); err == nil {
			return parts[0], prefixToNetmask(uint32(prefix))
		}
	}
	return dest, ""
}

func prefixToNetmask(prefix uint32) string {
	if prefix > 32 {
		return ""
	}
	mask := net.CIDRMask(int(prefix), 32)
	if mask == nil {
		return ""
	}
	return net.IP(mask).String()
}

// dropSection removes an accidentally empty section from a package under
// construction. Packages here are detached, so rebuilding is the simplest
// correct way to preserve order.
func dropSection(pkg *uci.Package, target *uci.Section) *uci.Package {
	rebuilt := uci.NewPackage(pkg.Name())
	for _, s := range pkg.Sections() {
		if s == target {
			continue
		}
		ns, err := rebuilt.AddSection(s.Type(), s.Name())
		if err != nil {
			continue
		}
		for _, o := range s.Options() {
			if o.IsList() {
				for _, v := range o.Values() {
					ns.AddList(o.Name(), v)
				}
			} else {
				ns.AddOption(o.Name(), o.Value())
			}
		}
	}
	return rebuilt
}

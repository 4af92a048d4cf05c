package common

import (
	"encoding/json"
	"sort"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/honeybbq/uci/pkg/uci"
)

// SetString stores a string option if non-empty.
func SetString(section *uci.Section, key, value string) {
	if section == nil || value == "" {
		return
	}
	section.Set(key, value)
}

// SetStringPtr stores the pointed string if not nil/empty.
func SetStringPtr(section *uci.Section, key string, value *string) {
	if value == nil {
		return
	}
	SetString(section, key, *value)
}

// SetUint32Ptr stores uint32 pointer as decimal string.
func SetUint32Ptr(section *uci.Section, key string, value *uint32) {
	if section == nil || value == nil {
		return
	}
	section.Set(key, strconv.FormatUint(uint64(*value), 10))
}

// SetUint32Value stores uint32 value as decimal string if non-zero.
func SetUint32Value(section *uci.Section, key string, value uint32) {
	if section == nil || value == 0 {
		return
	}
	section.Set(key, strconv.FormatUint(uint64(value), 10))
}

// SetBool stores bool pointer as "1"/"0".
func SetBool(section *uci.Section, key string, value *bool) {
	if section == nil || value == nil {
		return
	}
	SetBoolValue(section, key, *value)
}

// SetBoolValue stores bool value as "1"/"0".
func SetBoolValue(section *uci.Section, key string, value bool) {
	if section == nil {
		return
	}
	if value {
		section.Set(key, "1")
	} else {
		section.Set(key, "0")
	}
}

// SetList sets a list option after filtering empty values.
func SetList(section *uci.Section, key string, values []string) {
	if section == nil || len(values) == 0 {
		return
	}
	for _, v := range values {
		if v != "" {
			section.AddList(key, v)
		}
	}
}

// AppendList appends a single value to a list option.
func AppendList(section *uci.Section, key string, value string) {
	if section == nil || value == "" {
		return
	}
	section.AddList(key, value)
}

// OptionExists reports whether option already set.
func OptionExists(section *uci.Section, key string) bool {
	return section != nil && section.Option(key) != nil
}

// Empty reports whether the section holds no options at all.
func Empty(section *uci.Section) bool {
	return section == nil || len(section.Options()) == 0
}

// ProtoMessageToMap converts proto message into map via protojson.
func ProtoMessageToMap(msg proto.Message) map[string]any {
	if msg == nil {
		return nil
	}
	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		EmitUnpopulated: false,
	}
	data, err := marshaler.Marshal(msg)
	if err != nil {
		return nil
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil
	}
	return values
}

// ApplyOptionsFromMap writes entries into section, applying skip rules.
// Keys are applied in sorted order so the section's option order (and
// therefore the export) is deterministic.
func ApplyOptionsFromMap(section *uci.Section, values map[string]any, skip map[string]struct{}) {
	if len(values) == 0 || section == nil {
		return
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		raw := values[key]
		if skip != nil {
			if _, ok := skip[key]; ok {
				continue
			}
		}
		switch v := raw.(type) {
		case string:
			SetString(section, key, v)
		case bool:
			SetBoolValue(section, key, v)
		case float64:
			SetString(section, key, strconv.FormatInt(int64(v), 10))
		case []any:
			SetList(section, key, toStringSlice(v))
		}
	}
}

func toStringSlice(items []any) []string {
	if len(items) == 0 {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if v != "" {
				result = append(result, v)
			}
		case bool:
			if v {
				result = append(result, "1")
			} else {
				result = append(result, "0")
			}
		case float64:
			result = append(result, strconv.FormatInt(int64(v), 10))
		}
	}
	return result
}

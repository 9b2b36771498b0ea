package vagrantfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

const instanceNameToken = "%{instance_name}"

// ParseNetwork converts network config entries of the form
// [type, {options}] into Network values.
func ParseNetwork(raw []interface{}) ([]Network, error) {
	networks := make([]Network, 0, len(raw))
	for i, entry := range raw {
		items, ok := entry.([]interface{})
		if !ok || len(items) == 0 {
			return nil, fmt.Errorf("network entry %d must be a list of [type, options]", i)
		}

		netType, ok := items[0].(string)
		if !ok || netType == "" {
			return nil, fmt.Errorf("network entry %d: type must be a string", i)
		}

		n := Network{Type: strings.TrimPrefix(netType, ":")}
		if len(items) > 1 && items[1] != nil {
			opts, err := toStringMap(items[1])
			if err != nil {
				return nil, fmt.Errorf("network entry %d: %w", i, err)
			}
			n.Options = opts
		}
		networks = append(networks, n)
	}
	return networks, nil
}

// FinalizeSyncedFolders converts [source, destination, options] entries.
// %{instance_name} is replaced in source and destination, source is expanded
// relative to kitchenRoot, and missing options become nil.
func FinalizeSyncedFolders(raw []interface{}, instanceName, kitchenRoot string) ([]SyncedFolder, error) {
	folders := make([]SyncedFolder, 0, len(raw))
	for i, entry := range raw {
		items, ok := entry.([]interface{})
		if !ok || len(items) < 2 {
			return nil, fmt.Errorf("synced folder entry %d must be a list of [source, destination, options]", i)
		}

		source, ok1 := items[0].(string)
		destination, ok2 := items[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("synced folder entry %d: source and destination must be strings", i)
		}

		source = strings.ReplaceAll(source, instanceNameToken, instanceName)
		if !filepath.IsAbs(source) {
			source = filepath.Join(kitchenRoot, source)
		}

		options := "nil"
		if len(items) > 2 && items[2] != nil {
			switch o := items[2].(type) {
			case string:
				if o != "" {
					options = o
				}
			default:
				m, err := toStringMap(o)
				if err != nil {
					return nil, fmt.Errorf("synced folder entry %d: %w", i, err)
				}
				options = rubyArgs(m)
			}
		}

		folders = append(folders, SyncedFolder{
			Source:      filepath.Clean(source),
			Destination: strings.ReplaceAll(destination, instanceNameToken, instanceName),
			Options:     options,
		})
	}
	return folders, nil
}

func toStringMap(v interface{}) (map[string]interface{}, error) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("options must be a mapping, got %T", v)
	}
}

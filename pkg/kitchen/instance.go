package kitchen

import (
	"regexp"
	"strings"
)

var nameReplacer = strings.NewReplacer("_", "-", ",", "-", "/", "-", ".", "")

// InstanceName builds the instance name for a suite and platform pair.
func InstanceName(suite, platform string) string {
	return nameReplacer.Replace(suite + "-" + platform)
}

// Instances expands every suite across the platforms it applies to.
// Configuration bags are merged in the order top-level, platform, suite.
func (f *File) Instances() []*Instance {
	var instances []*Instance
	for si := range f.Suites {
		suite := &f.Suites[si]
		for pi := range f.Platforms {
			platform := &f.Platforms[pi]
			if !suite.appliesTo(platform.Name) {
				continue
			}
			instances = append(instances, &Instance{
				Name:         InstanceName(suite.Name, platform.Name),
				SuiteName:    suite.Name,
				PlatformName: platform.Name,
				Root:         f.Root,
				Driver:       f.Driver.Merge(platform.Driver, suite.Driver),
				Provisioner:  f.Provisioner.Merge(platform.Provisioner, suite.Provisioner),
				Verifier:     f.Verifier.Merge(platform.Verifier, suite.Verifier),
			})
		}
	}
	return instances
}

// Select returns the instances whose names match pattern.
// An empty pattern or "all" selects everything.
func Select(instances []*Instance, pattern string) ([]*Instance, error) {
	if pattern == "" || pattern == "all" {
		return instances, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	var out []*Instance
	for _, inst := range instances {
		if inst.Name == pattern || re.MatchString(inst.Name) {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (s *Suite) appliesTo(platform string) bool {
	if len(s.Includes) > 0 && !contains(s.Includes, platform) {
		return false
	}
	return !contains(s.Excludes, platform)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

package driver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/pkg/runtime"
)

const (
	// MinVagrantVersion is the oldest Vagrant release the driver runs against.
	MinVagrantVersion  = "1.6.0"
	// MinPluginVersion is the oldest vagrant-winrm plugin accepted in upload mode.
	MinPluginVersion   = "0.4.0"
	// VagrantDownloadURL is shown when Vagrant is missing or too old.
	VagrantDownloadURL = "http://downloads.vagrantup.com/"
)

// VerifyDependencies checks that vagrant and, in upload mode, the
// vagrant-winrm plugin are installed in supported versions. The orchestrator
// skips this check in dry-run mode.
func (d *VagrantWinRM) VerifyDependencies(ctx context.Context) error {
	if err := d.checkVagrantVersion(ctx); err != nil {
		return err
	}
	if d.config.RemoteMode == RemoteModeUpload {
		return d.checkPluginVersion(ctx)
	}
	return nil
}

func (d *VagrantWinRM) checkVagrantVersion(ctx context.Context) error {
	notInstalled := fmt.Sprintf("Vagrant %s or higher is not installed.\nPlease download a package from %s.", MinVagrantVersion, VagrantDownloadURL)

	out, err := d.query(ctx, "vagrant", "--version")
	if err != nil {
		if errors.Is(err, runtime.ErrExecutableNotFound) {
			return vkerrors.NewDependencyMissingError(notInstalled, "Install Vagrant and make sure it is on your PATH", err)
		}
		return commandFailure("vagrant --version", err)
	}

	version := lastToken(out)
	cmp, err := CompareVersions(version, MinVagrantVersion)
	if err != nil {
		return vkerrors.NewDependencyMissingError(notInstalled, fmt.Sprintf("Could not parse the Vagrant version from %q", strings.TrimSpace(out)), err)
	}
	if cmp < 0 {
		return vkerrors.NewDependencyOutdatedError(
			fmt.Sprintf("Detected an old version of Vagrant (%s).\nPlease upgrade to version %s or higher from %s.", version, MinVagrantVersion, VagrantDownloadURL),
			"Upgrade Vagrant",
			nil,
		)
	}
	return nil
}

func (d *VagrantWinRM) checkPluginVersion(ctx context.Context) error {
	notInstalled := fmt.Sprintf("Vagrant-winrm %s or higher is not installed.", MinPluginVersion)
	suggestion := "Run: vagrant plugin install vagrant-winrm"

	out, err := d.query(ctx, "vagrant", "winrm", "--plugin-version")
	if err != nil {
		return vkerrors.NewDependencyMissingError(notInstalled, suggestion, err)
	}

	version := lastToken(out)
	cmp, err := CompareVersions(version, MinPluginVersion)
	if err != nil {
		return vkerrors.NewDependencyMissingError(notInstalled, suggestion, err)
	}
	if cmp < 0 {
		return vkerrors.NewDependencyOutdatedError(
			fmt.Sprintf("Detected an old version of Vagrant-winrm (%s).\nPlease upgrade to version %s or higher.", version, MinPluginVersion),
			"Run: vagrant plugin update vagrant-winrm",
			nil,
		)
	}
	return nil
}

// query runs a read-only command without streaming its output at info level.
func (d *VagrantWinRM) query(ctx context.Context, command ...string) (string, error) {
	return d.runner.Run(ctx, runtime.RunOptions{Command: command, Quiet: true})
}

func lastToken(out string) string {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

var (
	versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9A-Za-z]+)*(-[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?$`)
	segmentPattern = regexp.MustCompile(`[0-9]+|[A-Za-z]+`)
)

// segment is one run of digits or one run of letters in a version string.
// A letter run marks a prerelease.
type segment struct {
	num int
	str string
}

func (s segment) isString() bool { return s.str != "" }

func (s segment) compare(o segment) int {
	switch {
	case s.isString() && o.isString():
		return strings.Compare(s.str, o.str)
	case s.isString():
		return -1
	case o.isString():
		return 1
	case s.num < o.num:
		return -1
	case s.num > o.num:
		return 1
	}
	return 0
}

// parseVersion splits a version into canonical segments: trailing zeros are
// dropped from the release part and from the prerelease part, so "1.6.0"
// and "1.6" share the same segments.
func parseVersion(s string) ([]segment, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if !versionPattern.MatchString(s) {
		return nil, fmt.Errorf("malformed version number string %q", s)
	}

	var release, pre []segment
	for _, run := range segmentPattern.FindAllString(strings.ReplaceAll(s, "-", ".pre."), -1) {
		seg := segment{str: run}
		if n, err := strconv.Atoi(run); err == nil {
			seg = segment{num: n}
		}
		if seg.isString() || len(pre) > 0 {
			pre = append(pre, seg)
		} else {
			release = append(release, seg)
		}
	}
	return append(trimZeros(release), trimZeros(pre)...), nil
}

func trimZeros(segs []segment) []segment {
	for len(segs) > 0 && segs[len(segs)-1] == (segment{}) {
		segs = segs[:len(segs)-1]
	}
	return segs
}

// releaseCore renders a version of at most three numeric segments as a
// semver string. ok is false for anything longer or with a prerelease.
func releaseCore(segs []segment) (core string, ok bool) {
	if len(segs) > 3 {
		return "", false
	}
	var parts [3]int
	for i, seg := range segs {
		if seg.isString() {
			return "", false
		}
		parts[i] = seg.num
	}
	return fmt.Sprintf("v%d.%d.%d", parts[0], parts[1], parts[2]), true
}

// CompareVersions orders two version strings the way RubyGems does. Each
// version is split into runs of digits and runs of letters. Numbers compare
// numerically and letters lexically, a missing segment counts as zero and a
// letter run sorts before any number, so "1.6.0.rc1" is older than "1.6.0".
// It returns -1, 0 or +1.
func CompareVersions(a, b string) (int, error) {
	sa, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	sb, err := parseVersion(b)
	if err != nil {
		return 0, err
	}

	ca, okA := releaseCore(sa)
	cb, okB := releaseCore(sb)
	if okA && okB {
		return semver.Compare(ca, cb), nil
	}

	for i := 0; i < len(sa) || i < len(sb); i++ {
		var x, y segment
		if i < len(sa) {
			x = sa[i]
		}
		if i < len(sb) {
			y = sb[i]
		}
		if c := x.compare(y); c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

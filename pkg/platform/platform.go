// Package platform captures host metadata for run directories so results
// can be attributed to the machine and build that produced them.
package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bcsv-io/benchstand/pkg/fsutil"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Info is the platform.json document written into every run directory.
type Info struct {
	Hostname     string    `json:"hostname"`
	OS           string    `json:"os"`
	Architecture string    `json:"architecture"`
	CPUModel     string    `json:"cpu_model"`
	CPUCount     int       `json:"cpu_count"`
	MemoryTotal  uint64    `json:"memory_total_bytes,omitempty"`
	GoVersion    string    `json:"go_version"`
	Timestamp    time.Time `json:"timestamp"`

	BuildType   string   `json:"build_type,omitempty"`
	GitLabel    string   `json:"git_label,omitempty"`
	GitDescribe string   `json:"git_describe,omitempty"`
	RunTypes    []string `json:"run_types,omitempty"`
	Repetitions int      `json:"repetitions,omitempty"`
}

// Collect gathers host, CPU, and memory information. Partial data is
// returned rather than failing the run when a probe is unavailable.
func Collect(ctx context.Context) *Info {
	info := &Info{
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
		Timestamp:    time.Now(),
	}

	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hostInfo.Hostname
		info.OS = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
	} else if name, err := os.Hostname(); err == nil {
		info.Hostname = name
		info.OS = runtime.GOOS
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	if count, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCount = count
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
	}

	return info
}

// WriteFile writes the platform document into a run directory.
func WriteFile(runDir string, info *Info) error {
	return fsutil.WriteJSON(filepath.Join(runDir, "platform.json"), info)
}

// ReadFile loads the platform document from a run directory.
func ReadFile(runDir string) (*Info, error) {
	var info Info
	if err := fsutil.ReadJSON(filepath.Join(runDir, "platform.json"), &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// GitVersion returns the best git identity recorded for a run directory,
// or "" when no platform document exists.
func GitVersion(runDir string) string {
	info, err := ReadFile(runDir)
	if err != nil {
		return ""
	}

	return info.BestGitVersion()
}

// BestGitVersion returns the most specific git identity in the document.
func (i *Info) BestGitVersion() string {
	if i.GitDescribe != "" {
		return i.GitDescribe
	}

	return i.GitLabel
}

// Manifest captures the invocation arguments of a run for later audit.
type Manifest struct {
	Timestamp time.Time      `json:"timestamp"`
	Args      map[string]any `json:"args"`
}

// WriteManifest writes manifest.json into a run directory.
func WriteManifest(runDir string, args map[string]any) error {
	m := Manifest{
		Timestamp: time.Now(),
		Args:      args,
	}

	return fsutil.WriteJSON(filepath.Join(runDir, "manifest.json"), m)
}

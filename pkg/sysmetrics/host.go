package sysmetrics

import (
	"github.com/shirou/gopsutil/v4/host"
	"github.com/sirupsen/logrus"
)

// HostInfo describes the machine a benchmark batch ran on.
type HostInfo struct {
	Hostname        string `json:"hostname,omitempty"`
	OS              string `json:"os,omitempty"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
	Arch            string `json:"arch,omitempty"`
}

// CollectHostInfo gathers host metadata for batch provenance. Returns nil
// on failure; host introspection is best-effort like the rest of the
// sampler.
func CollectHostInfo(log logrus.FieldLogger) *HostInfo {
	info, err := host.Info()
	if err != nil {
		log.WithError(err).Warn("Could not read host info")

		return nil
	}

	return &HostInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Arch:            info.KernelArch,
	}
}

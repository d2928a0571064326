package crash

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const bannerRule = "======================================================================\n"

// collectHostMeta gathers the banner's host description once, at install
// time. The fault path only ever copies the resulting string.
func collectHostMeta() string {
	info, err := host.Info()
	if err != nil {
		return fmt.Sprintf("host: %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	meta := fmt.Sprintf("host: %s %s (kernel %s)", info.Platform, info.PlatformVersion, info.KernelVersion)
	if vm, err := mem.VirtualMemory(); err == nil {
		meta += fmt.Sprintf(", %d cpus, %.1f GiB ram", runtime.NumCPU(), float64(vm.Total)/(1<<30))
	}
	return meta
}

func (h *Handler) buildBannerHead() string {
	variant := ""
	if h.cfg.Baseline {
		variant = " (baseline)"
	}
	return bannerRule +
		"crashtrace fatal error handler\n" +
		fmt.Sprintf("build: v%s (%s) %s/%s%s\n", h.cfg.Version, h.cfg.Commit, runtime.GOOS, runtime.GOARCH, variant) +
		h.hostMeta + "\n"
}

// banner is emitted at most once per process lifetime, however many
// goroutines fault.
func (h *Handler) banner() string {
	b := h.bannerHead
	if h.cfg.Metadata != nil {
		b += "meta: " + h.cfg.Metadata() + "\n"
	}
	return b + "crash reports decode at " + h.cfg.BaseURL + "\n" + bannerRule
}

// reasonHeader identifies the faulting thread best-effort: the OS thread the
// goroutine happened to run on plus the goroutine id itself.
func (h *Handler) reasonHeader(tid uint64, reason Reason) string {
	return fmt.Sprintf("\nthread %d (goroutine %d) panicked:\n  %s\n", threadID(), tid, reason.Render())
}

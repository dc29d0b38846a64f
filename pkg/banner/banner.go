package banner

import (
	"fmt"

	"chatsync/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗███████╗██╗   ██╗███╗   ██╗ ██████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██╔════╝╚██╗ ██╔╝████╗  ██║██╔════╝
██║     ███████║███████║   ██║   ███████╗ ╚████╔╝ ██╔██╗ ██║██║
██║     ██╔══██║██╔══██║   ██║   ╚════██║  ╚██╔╝  ██║╚██╗██║██║
╚██████╗██║  ██║██║  ██║   ██║   ███████║   ██║   ██║ ╚████║╚██████╗
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚══════╝   ╚═╝   ╚═╝  ╚═══╝ ╚═════╝
`

// Print prints the startup banner using the effective config so the
// operator can verify what the engine is actually running with.
func Print(eff config.EffectiveConfigResult, version string) {
	cfg := eff.Config

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", eff.Addr)
	fmt.Printf("Cache:     %s (cap %d msgs/conversation)\n", eff.DBPath, cfg.Sync.HistoryCap)
	fmt.Printf("Identity:  %s\n", cfg.Identity.LocalUserID)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	fmt.Printf("Config:    %s\n", eff.Source)

	fmt.Println("\n== Collaborators ==============================================")
	if cfg.Backend.BaseURL != "" {
		fmt.Printf("- Backend: %s (timeout %s)\n", cfg.Backend.BaseURL, cfg.Backend.Timeout.Duration())
	} else {
		fmt.Println("- Backend: MISSING (set backend.base_url or CHATSYNC_BACKEND_URL)")
	}
	if cfg.Backend.APIKey != "" {
		fmt.Println("- API key: OK")
	} else {
		fmt.Println("- API key: MISSING (requests will be rejected as unauthenticated)")
	}
	if cfg.Push.URL != "" {
		fmt.Printf("- Push:    %s (reconnect %s..%s)\n", cfg.Push.URL, cfg.Push.ReconnectMin.Duration(), cfg.Push.ReconnectMax.Duration())
	} else {
		fmt.Println("- Push:    unconfigured (feeds update on REST responses only)")
	}
	if cfg.Maintenance.Enabled {
		cron := cfg.Maintenance.Cron
		if cron == "" {
			cron = "0 2 * * *"
		}
		fmt.Printf("- Sweep:   %s\n", cron)
	} else {
		fmt.Println("- Sweep:   disabled")
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/groups/{id}/feed          - ordered feed snapshot")
	fmt.Println("POST /v1/groups/{id}/messages      - send (optimistic, 202)")
	fmt.Println("GET  /v1/conversations             - direct-chat listing")
	fmt.Println("GET  /healthz /readyz /metrics     - operational probes")
}

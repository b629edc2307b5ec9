package banner

import (
	"fmt"

	"saveit/pkg/config"
)

const banner = `
███████╗ █████╗ ██╗   ██╗███████╗██╗████████╗
██╔════╝██╔══██╗██║   ██║██╔════╝██║╚══██╔══╝
███████╗███████║██║   ██║█████╗  ██║   ██║
╚════██║██╔══██║╚██╗ ██╔╝██╔══╝  ██║   ██║
███████║██║  ██║ ╚████╔╝ ███████╗██║   ██║
╚══════╝╚═╝  ╚═╝  ╚═══╝  ╚══════╝╚═╝   ╚═╝
`

// PrintWithEff prints the startup banner using the effective config so
// operators can see what the process is actually running with.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET    /v1/items?filter=<category>  - list saved items")
	fmt.Println("GET    /v1/items/{id}               - one item")
	fmt.Println("DELETE /v1/items/{id}               - remove an item")
	fmt.Println("GET    /v1/items/{id}/link          - resolve the origin link")

	fmt.Println("\n== Production? ================================================")
	if eff.Config != nil {
		if eff.Config.Telegram.BotToken != "" {
			fmt.Println("- Bot token: configured")
		} else {
			fmt.Println("- Bot token: MISSING (required to verify Telegram viewers)")
		}
		if eff.Config.Telegram.AllowMockViewer {
			fmt.Println("- Mock viewer: ENABLED (development only, disable in production)")
		}
		if eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
			fmt.Println("- TLS: configured")
		} else {
			fmt.Println("- TLS: unconfigured")
		}
		if eff.Config.Reminders.Enabled {
			cron := eff.Config.Reminders.Cron
			if cron == "" {
				cron = "*/5 * * * *"
			}
			fmt.Printf("- Reminders: enabled (cron=%s)\n", cron)
		} else {
			fmt.Println("- Reminders: disabled")
		}
	}

	fmt.Println("\n== Logs: =================================================")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Provider connection status for the relay CLI.

package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
	"github.com/jeranaias/relay-tui/internal/util"
)

// RunStatus handles "relay status". It reports what is stored on disk; it
// never probes the network, so it is safe to run offline.
func (a *App) RunStatus(args *ArgParser) error {
	fmt.Printf("relay %s\n\n", Version)
	fmt.Printf("%s %s %s %s\n",
		util.PadWidth("PROVIDER", 12),
		util.PadWidth("STATUS", 14),
		util.PadWidth("METHOD", 9),
		"FINGERPRINT")

	for _, id := range a.Registry.IDs() {
		p, err := a.Registry.Get(id)
		if err != nil {
			continue
		}

		if !p.RequiresKey() {
			fmt.Printf("%s %s %s %s\n",
				util.PadWidth(string(id), 12),
				util.PadWidth("available", 14),
				util.PadWidth("-", 9),
				"-")
			continue
		}

		cred, err := a.Store.Load(auth.StorageKeyFor(id))
		if err != nil {
			fmt.Printf("%s %s %s %s\n",
				util.PadWidth(string(id), 12),
				util.PadWidth("not connected", 14),
				util.PadWidth("-", 9),
				"-")
			continue
		}

		method := "key"
		if cred.Kind == auth.KindOAuthBearer {
			method = "oauth"
		}
		// SECURITY: fingerprints only; the secret itself never prints.
		fmt.Printf("%s %s %s %s\n",
			util.PadWidth(string(id), 12),
			util.PadWidth("connected", 14),
			util.PadWidth(method, 9),
			cred.Fingerprint())
	}

	fmt.Println()
	fmt.Printf("default provider: %s (model %s)\n",
		a.Cfg.DefaultProvider, a.Cfg.ModelFor(a.Cfg.DefaultProvider))

	if a.History != nil {
		metas, err := a.History.List()
		if err == nil {
			fmt.Printf("saved conversations: %d\n", len(metas))
		}
	}

	if args.BoolFlag("verbose") {
		fmt.Println()
		fmt.Println(styles.MutedText.Render("status read at " + time.Now().Format(time.RFC3339)))
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/pierceboggan/byok-foundry-local/core"
)

// daemonProcessNames are substrings matched against local process names to
// spot an inference daemon that is installed but not answering HTTP.
var daemonProcessNames = []string{"foundry", "inference-daemon"}

type daemonProcess struct {
	pid  int32
	name string
}

func findDaemonProcesses() []daemonProcess {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}

	var found []daemonProcess
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		lower := strings.ToLower(name)
		for _, candidate := range daemonProcessNames {
			if strings.Contains(lower, candidate) {
				found = append(found, daemonProcess{pid: p.Pid, name: name})
				break
			}
		}
	}
	return found
}

func runStatus(ctx context.Context, service *core.BridgeService) error {
	status := service.Client().CheckStatus(ctx)
	procs := findDaemonProcesses()

	// A failed refresh still leaves the cached catalog usable for the
	// loaded/total summary.
	if _, err := service.Registry().Refresh(ctx, false); err != nil {
		service.Logger().Warnf("Catalog refresh during status check failed: %v", err)
	}
	models := service.Registry().Models()

	fmt.Println(headerStyle.Render("Local inference daemon"))
	renderStatusTable(os.Stdout, status, models, procs)

	if !status.Reachable {
		if len(procs) > 0 {
			fmt.Println("\nA daemon process is running but not answering. Check the configured endpoint and port with `byok -config <path>` or ~/.config/byok/config.yaml.")
		} else {
			fmt.Println("\nNo daemon process found. Start the local inference daemon and retry.")
		}
	}
	return nil
}

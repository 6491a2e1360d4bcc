package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/pierceboggan/byok-foundry-local/core"
)

func renderModelTable(w io.Writer, models []core.Model) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"ID", "Name", "Publisher", "State", "Default", "Context", "Capabilities"})
	tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tw.SetCenterSeparator("|")
	tw.SetColumnSeparator("|")
	tw.SetRowSeparator("-")

	headerColours := make([]tablewriter.Colors, 7)
	for i := range headerColours {
		headerColours[i] = tablewriter.Colors{tablewriter.FgHiWhiteColor}
	}
	tw.SetHeaderColor(headerColours...)

	for _, m := range models {
		isDefault := ""
		if m.IsDefault {
			isDefault = "*"
		}
		tw.Append([]string{
			m.ID,
			m.Name,
			m.Publisher,
			loadedStateLabel(m.IsLoaded),
			isDefault,
			core.FormatTokenCount(m.MaxInputTokens),
			capabilityLabel(m),
		})
	}

	tw.Render()
}

func capabilityLabel(m core.Model) string {
	caps := make([]string, 0, 5)
	if m.Chat {
		caps = append(caps, "chat")
	}
	if m.Completion {
		caps = append(caps, "completion")
	}
	if m.Streaming {
		caps = append(caps, "streaming")
	}
	if m.Vision {
		caps = append(caps, "vision")
	}
	if m.ToolCalling {
		caps = append(caps, "tools")
	}
	return strings.Join(caps, ", ")
}

func renderStatusTable(w io.Writer, status *core.ServiceStatus, models []core.Model, procs []daemonProcess) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Field", "Value"})
	tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tw.SetCenterSeparator("|")
	tw.SetColumnSeparator("|")
	tw.SetRowSeparator("-")

	reachable := errorStyle.Render("no")
	if status.Reachable {
		reachable = successStyle.Render("yes")
	}
	running := errorStyle.Render("no")
	if status.Running {
		running = successStyle.Render("yes")
	}

	loaded := 0
	for _, m := range models {
		if m.IsLoaded {
			loaded++
		}
	}

	tw.Append([]string{"Reachable", reachable})
	tw.Append([]string{"Running", running})
	tw.Append([]string{"Models loaded", fmt.Sprintf("%d/%d", loaded, len(models))})
	tw.Append([]string{"Daemon reports loaded", fmt.Sprintf("%d", status.LoadedModelCount)})
	if status.Version != "" {
		tw.Append([]string{"Version", status.Version})
	}
	tw.Append([]string{"Checked at", status.CheckedAt.Format("2006-01-02 15:04:05")})
	if status.Error != "" {
		tw.Append([]string{"Error", errorStyle.Render(status.Error)})
	}

	if len(procs) == 0 {
		tw.Append([]string{"Local process", faintStyle.Render("none found")})
	}
	for _, p := range procs {
		tw.Append([]string{"Local process", fmt.Sprintf("%s (pid %d)", p.name, p.pid)})
	}

	tw.Render()
}

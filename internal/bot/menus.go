package bot

import (
	"fmt"

	"trackbot/internal/report"
	"trackbot/internal/track"
	"trackbot/pkg/tgui"
)

func mainMenu() view {
	text := tgui.JoinH("\n",
		tgui.B("📦 Package Tracker"),
		tgui.Esc("What would you like to do?"),
	)
	kb := tgui.NewInline().
		Row(tgui.Btn("🔄 Refresh Status (Force Check)", tgui.Data(report.CBPlugin, report.ActionRefresh, ""))).
		Row(tgui.Btn("📝 Manage Tracking Numbers", tgui.Data(report.CBPlugin, report.ActionManage, "")))
	return view{text: text.String(), markup: kb.Markup()}
}

func manageMenu(count int) view {
	text := tgui.JoinH("\n",
		tgui.B("📝 Manage Tracking Numbers"),
		tgui.Esc(fmt.Sprintf("You are tracking %d package(s).", count)),
	)
	kb := tgui.NewInline().
		Row(tgui.Btn("➕ Add New Number", tgui.Data(report.CBPlugin, report.ActionAdd, ""))).
		Row(tgui.Btn("🗑 Delete Existing Number", tgui.Data(report.CBPlugin, report.ActionDelMenu, ""))).
		Row(tgui.Btn("📋 View Current List", tgui.Data(report.CBPlugin, report.ActionList, ""))).
		Row(tgui.Btn("⬅️ Back to Main Menu", tgui.Data(report.CBPlugin, report.ActionMainMenu, "")))
	return view{text: text.String(), markup: kb.Markup()}
}

func listView(pkgs []track.Package) view {
	parts := []tgui.H{tgui.B("📋 Tracked Packages")}
	if len(pkgs) == 0 {
		parts = append(parts, tgui.Esc("Your tracking list is empty."))
	}
	for i, p := range pkgs {
		carrier := track.Classify(p.Number)
		parts = append(parts, tgui.JoinH(" ",
			tgui.Esc(fmt.Sprintf("%d.", i+1)),
			tgui.B(string(carrier)),
			tgui.Link(p.Number, carrier.DeepLink(p.Number)),
			tgui.Esc("— "+p.LastStatus),
		))
	}
	kb := tgui.NewInline().
		Row(tgui.Btn("⬅️ Back", tgui.Data(report.CBPlugin, report.ActionManage, "")))
	return view{text: tgui.JoinH("\n", parts...).String(), markup: kb.Markup()}
}

func deleteMenu(pkgs []track.Package) view {
	text := tgui.JoinH("\n",
		tgui.B("🗑 Delete a Package"),
		tgui.Esc("Select the number to stop tracking:"),
	)
	kb := tgui.NewInline()
	for _, p := range pkgs {
		kb.Row(tgui.Btn("❌ "+p.Number, tgui.Data(report.CBPlugin, report.ActionDelete, p.Number)))
	}
	kb.Row(tgui.Btn("⬅️ Back", tgui.Data(report.CBPlugin, report.ActionManage, "")))
	return view{text: text.String(), markup: kb.Markup()}
}

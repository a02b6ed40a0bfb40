package telegram

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/trendbot/app/promo"
	"github.com/m3rciful/trendbot/core/telegram/keyboard"
)

// Callback keys. Network, package, and approval actions travel as telebot
// key|payload pairs: the payload carries the symbol, tier key, or reference.
const (
	cbStart    = "start"
	cbNetwork  = "net"
	cbPackages = "packages"
	cbPackage  = "pkg"
	cbApprove  = "admin_start"
)

const networksPerRow = 3

func startKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Start Trending", Unique: cbStart},
	})
}

func networkKeyboard(networks []string) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(networks))
	for _, sym := range networks {
		btns = append(btns, keyboard.InlineBtn{Text: sym, Unique: cbNetwork, Data: sym})
	}
	return keyboard.InlineButtonsNPerRow(btns, networksPerRow)
}

func continueKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Continue", Unique: cbPackages},
	})
}

func packageKeyboard(packages []promo.Package) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(packages))
	for _, p := range packages {
		btns = append(btns, keyboard.InlineBtn{Text: p.Key, Unique: cbPackage, Data: p.Key})
	}
	return keyboard.InlineButtons(btns)
}

func approveKeyboard(ref string) *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "START TRENDING", Unique: cbApprove, Data: ref},
	})
}

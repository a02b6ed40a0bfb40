package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	appconfig "github.com/m3rciful/trendbot/app/config"
	"github.com/m3rciful/trendbot/app/payments"
	"github.com/m3rciful/trendbot/app/pricing"
	"github.com/m3rciful/trendbot/app/promo"
	"github.com/m3rciful/trendbot/core/logger"
	"github.com/m3rciful/trendbot/core/telegram/callbacks"
	"github.com/m3rciful/trendbot/core/telegram/format"
	tghelpers "github.com/m3rciful/trendbot/core/telegram/helpers"
)

// channel adapts a channel username like "@trending" to a telebot recipient.
type channel string

// Recipient implements tele.Recipient.
func (ch channel) Recipient() string { return string(ch) }

// Handlers translates Telegram updates into flow calls and renders replies.
type Handlers struct {
	flow  *promo.Flow
	promo appconfig.PromoConfig
}

// NewHandlers builds the conversation handlers.
func NewHandlers(flow *promo.Flow, promoCfg appconfig.PromoConfig) *Handlers {
	return &Handlers{flow: flow, promo: promoCfg}
}

// Start handles /start: the branded intro with the entry button.
func (h *Handlers) Start(c tele.Context) error {
	text := fmt.Sprintf("*%s*\n\nBoost visibility for your token.\nFast activation, manual control.", h.promo.BrandTitle)
	return tghelpers.SendMD(c, text, startKeyboard())
}

// OnStart handles the entry button: offer the network choice.
func (h *Handlers) OnStart(c tele.Context) error {
	_ = c.Delete()
	return tghelpers.SendText(c, "Choose Network:", &tele.SendOptions{
		ReplyMarkup: networkKeyboard(h.flow.Networks()),
	})
}

// OnNetwork handles a network button: start a session and ask for the CA.
func (h *Handlers) OnNetwork(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	symbol := callbacks.CallbackPayload(c)

	if err := h.flow.ChooseNetwork(ctx, c.Sender().ID, symbol); err != nil {
		return tghelpers.SendText(c, "Unsupported network.")
	}
	_ = c.Delete()

	caption := fmt.Sprintf("%s\n\nEnter Your Token CA", h.promo.BrandTitle)
	if h.promo.PromptImageURL != "" {
		photo := &tele.Photo{File: tele.FromURL(h.promo.PromptImageURL), Caption: caption}
		return c.Send(photo)
	}
	return tghelpers.SendText(c, caption)
}

// OnTokenAddress handles free text while the session awaits a contract
// address. A failed resolution keeps the step so the user can resubmit.
func (h *Handlers) OnTokenAddress(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	md, err := h.flow.SubmitTokenAddress(ctx, c.Sender().ID, c.Text())
	switch {
	case err == nil:
	case errors.Is(err, promo.ErrNoSession):
		return nil
	case errors.Is(err, promo.ErrInvalidAddress):
		return tghelpers.SendText(c, "That doesn't look like a valid contract address.")
	default:
		// NotFound and transient provider failures read the same to the
		// user; the distinction only matters in the logs.
		return tghelpers.SendText(c, "Token not found.")
	}

	caption := fmt.Sprintf(
		"Token Detected\n\nName: %s\nSymbol: %s\nPrice: $%s\nLiquidity: %s\nMarket Cap: %s",
		md.Name, md.Symbol, md.PriceUSD,
		FormatUSDCompact(md.LiquidityUSD),
		FormatUSDCompact(md.MarketCapUSD),
	)
	if md.LogoURL != "" {
		photo := &tele.Photo{File: tele.FromURL(md.LogoURL), Caption: caption}
		return c.Send(photo, continueKeyboard())
	}
	return tghelpers.SendText(c, caption, &tele.SendOptions{ReplyMarkup: continueKeyboard()})
}

// OnPackages handles the Continue button: offer the duration choice.
func (h *Handlers) OnPackages(c tele.Context) error {
	return tghelpers.SendText(c, "Select trending duration:", &tele.SendOptions{
		ReplyMarkup: packageKeyboard(h.flow.Packages()),
	})
}

// OnPackage handles a duration button: quote the due amount and request
// payment. An unavailable price feed never requests payment.
func (h *Handlers) OnPackage(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	key := callbacks.CallbackPayload(c)

	inv, err := h.flow.ChoosePackage(ctx, c.Sender().ID, key)
	switch {
	case err == nil:
	case errors.Is(err, promo.ErrNoSession):
		return nil
	case errors.Is(err, promo.ErrUnknownPackage):
		return tghelpers.SendText(c, "Unknown package.")
	case errors.Is(err, pricing.ErrUnavailable):
		return tghelpers.SendText(c, "Pricing is temporarily unavailable. Please try again in a moment.")
	default:
		return tghelpers.SendText(c, "Pricing is temporarily unavailable. Please try again in a moment.")
	}

	var text string
	if inv.Currency == "USD" {
		text = fmt.Sprintf("Send %s USD equivalent to:\n\n%s\n\nSend TXID after payment.", inv.Amount, inv.Wallet)
	} else {
		text = fmt.Sprintf("Send %s %s to:\n\n%s\n\nSend TXID after payment.", inv.Amount, inv.Currency, inv.Wallet)
	}
	return tghelpers.SendText(c, text)
}

// OnTxID handles free text while the session awaits a transaction id.
func (h *Handlers) OnTxID(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sub, err := h.flow.SubmitTxID(ctx, c.Sender().ID, c.Text())
	switch {
	case err == nil:
	case errors.Is(err, promo.ErrNoSession):
		return nil
	case errors.Is(err, promo.ErrDuplicateTxID):
		return tghelpers.SendText(c, "TXID already used.")
	default:
		return tghelpers.SendText(c, "Could not register your payment. Please contact support.")
	}

	h.notifyApprover(c, sub)
	return tghelpers.SendText(c, "Payment pending admin approval.")
}

func (h *Handlers) notifyApprover(c tele.Context, sub promo.Submission) {
	act := sub.Activation
	verdict := "pending"
	if sub.Status == payments.StatusConfirmed {
		verdict = "confirmed"
	}
	text := fmt.Sprintf(
		"Payment received\n\n%s (%s)\nNetwork: %s\nPackage: %s\nAmount: %s %s\nTXID status: %s",
		act.Name, act.Symbol, act.Network, act.Package,
		act.DueAmount, act.DueCurrency, verdict,
	)
	approver := &tele.User{ID: h.flow.ApproverID()}
	if _, err := c.Bot().Send(approver, text, approveKeyboard(sub.Ref)); err != nil {
		logger.Error(tghelpers.BuildContext(c), "tg", "approver.notify",
			slog.String("status", "fail"),
			slog.String("ref", sub.Ref),
			slog.String("err", err.Error()),
		)
	}
}

// OnApprove handles the approver's activation button. Anyone else pressing
// it is ignored without side effects.
func (h *Handlers) OnApprove(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	ref := callbacks.CallbackPayload(c)

	act, err := h.flow.Approve(ctx, c.Sender().ID, ref)
	switch {
	case err == nil:
	case errors.Is(err, promo.ErrUnauthorized):
		return nil
	case errors.Is(err, promo.ErrNotStaged):
		return c.Edit("Already processed or unknown reference.")
	default:
		return c.Edit("Activation failed. Check the worker and try again.")
	}

	h.announce(c, act)
	return c.Edit("Trending activated.")
}

func (h *Handlers) announce(c tele.Context, act promo.Activation) {
	if h.promo.Channel == "" {
		return
	}
	name, _ := format.EscapeMarkdown(act.Name, format.MarkdownV1, "")
	symbol, _ := format.EscapeMarkdown(act.Symbol, format.MarkdownV1, "")
	text := fmt.Sprintf(
		"*%s Live*\n\n%s (%s)\nCA: `%s`\nStarted: %s",
		h.promo.BrandTitle, name, symbol, act.TokenAddress,
		time.Now().UTC().Format("15:04 UTC"),
	)
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if _, err := c.Bot().Send(channel(h.promo.Channel), text, opts); err != nil {
		logger.Error(tghelpers.BuildContext(c), "tg", "channel.announce",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// UnknownText drops free text from users with no active conversation.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(tele.Context) error { return nil }
}

// UnknownDocument drops stray attachments.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(tele.Context) error { return nil }
}

// UnknownCallback answers button presses that map to nothing.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
	}
}

package telegram

import (
	"fmt"

	appconfig "github.com/m3rciful/trendbot/app/config"
	"github.com/m3rciful/trendbot/app/market"
	"github.com/m3rciful/trendbot/app/notify"
	"github.com/m3rciful/trendbot/app/payments"
	"github.com/m3rciful/trendbot/app/pricing"
	"github.com/m3rciful/trendbot/app/promo"
	"github.com/m3rciful/trendbot/app/storage"
	"github.com/m3rciful/trendbot/core/bootstrap"
	corecmd "github.com/m3rciful/trendbot/core/cmd"
	coreconfig "github.com/m3rciful/trendbot/core/config"
	coretelegram "github.com/m3rciful/trendbot/core/telegram"
	"github.com/m3rciful/trendbot/core/telegram/commands"
	"github.com/m3rciful/trendbot/core/telegram/router"
	"github.com/m3rciful/trendbot/core/telegram/state"
	"github.com/m3rciful/trendbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// App carries the wired promotion bot: configuration, the conversation
// flow, and the Telegram handlers built on top of it.
type App struct {
	cfg      *appconfig.Config
	flow     *promo.Flow
	handlers *Handlers
}

// CoreConfig implements corecmd.ConfigCarrier.
func (a *App) CoreConfig() *coreconfig.Config {
	return a.cfg.CoreConfig()
}

// Bootstrap builds the application graph from loaded configuration.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*appconfig.Config)
	if !ok {
		return nil, fmt.Errorf("telegram: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	var converter pricing.Converter
	switch cfg.Pricing.Mode {
	case appconfig.PricingModeLive:
		converter = pricing.NewLive(cfg.Pricing.FeedURL)
	default:
		converter = pricing.FixedUSD{}
	}

	var archive promo.Archiver
	if res.DB != nil {
		archive = storage.NewArchive(res.DB)
	}

	flow := promo.NewFlow(
		cfg.FlowConfig(),
		promo.NewStore(),
		promo.NewTxLedger(),
		promo.NewApprovalGate(cfg.Core.Telegram.AdminID),
		market.NewResolver(cfg.Market.BaseURL),
		converter,
		payments.NewVerifier(cfg.Payments.RPCURL),
		notify.NewActivator(cfg.Notify.WebhookBase),
		archive,
	)

	return &App{
		cfg:      cfg,
		flow:     flow,
		handlers: NewHandlers(flow, cfg.Promo),
	}, nil
}

// TelegramRunOptions implements corecmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handlers.Start,
		Description: "Start token promotion",
	})

	type callbackDef struct {
		key     string
		handler tele.HandlerFunc
	}
	defs := []callbackDef{
		{cbStart, a.handlers.OnStart},
		{cbNetwork, a.handlers.OnNetwork},
		{cbPackages, a.handlers.OnPackages},
		{cbPackage, a.handlers.OnPackage},
		{cbApprove, a.handlers.OnApprove},
	}
	for _, d := range defs {
		if err := reg.RegisterCallback(d.key, d.handler); err != nil {
			return coretelegram.RunOptions{}, err
		}
	}

	var fallback ui.FallbackProvider = a.handlers
	reg.SetTextFallback(fallback.UnknownText())
	reg.SetCallbackNotFound(fallback.UnknownCallback())

	fsm := state.NewRouter(func(userID int64) state.State {
		step := a.flow.StepOf(userID)
		if step == "" {
			return state.StateIdle
		}
		return state.State(step)
	})
	fsm.Handle(state.State(promo.StepAwaitingTokenAddress), a.handlers.OnTokenAddress)
	fsm.Handle(state.State(promo.StepAwaitingTransactionID), a.handlers.OnTxID)

	coreCfg := a.cfg.CoreConfig()

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: coreCfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: fallback.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(fsm, reg, router.TextOptions{
		UnknownText:     fallback.UnknownText(),
		UnknownDocument: fallback.UnknownDocument(),
	})...)

	return coretelegram.RunOptions{
		Config:      coreCfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(coreCfg, nil),
		Routes:      routes,
	}, nil
}

// Command basket is the terminal client for the price API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/apperr"
	"github.com/marketbasket/pricewatch/internal/client"
	"github.com/marketbasket/pricewatch/internal/config"
	"github.com/marketbasket/pricewatch/internal/domain"
	"github.com/marketbasket/pricewatch/internal/logging"
	"github.com/marketbasket/pricewatch/internal/notify"
	"github.com/marketbasket/pricewatch/internal/repo"
	"github.com/marketbasket/pricewatch/internal/repo/memory"
	pg "github.com/marketbasket/pricewatch/internal/repo/postgres"
	"github.com/marketbasket/pricewatch/internal/scheduler"
	"github.com/marketbasket/pricewatch/internal/session"
	"github.com/marketbasket/pricewatch/internal/tracker"
	"github.com/marketbasket/pricewatch/internal/validate"
)

const usage = `usage: basket <command> [flags]

commands:
  search  -term T [-zip Z]           look up item prices
  triggers [-zip Z]                  list your price triggers
  add     -name N -target P [-zip Z] create a price trigger
  rm      -id ID                     delete a price trigger
  alerts  [-zip Z]                   show sale alerts for your triggers
  recs                               show recommendations
  watch   [-zip Z] [-interval D]     poll and notify on price changes
`

type app struct {
	cfg config.Client
	log *zap.Logger
	api *client.Client
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.ClientFromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, "basket", cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	sess := session.New(session.Credentials{Token: cfg.Token, RefreshToken: cfg.RefreshToken},
		session.NewOAuth2Refresher(cfg.TokenURL, cfg.AuthClientID))
	a := &app{cfg: cfg, log: logger, api: client.New(cfg.APIBase, sess, cfg.HTTPTimeout, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "search":
		runErr = a.search(ctx, args)
	case "triggers":
		runErr = a.triggers(ctx, args)
	case "add":
		runErr = a.add(ctx, args)
	case "rm":
		runErr = a.remove(ctx, args)
	case "alerts":
		runErr = a.alerts(ctx, args)
	case "recs":
		runErr = a.recs(ctx, args)
	case "watch":
		runErr = a.watch(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if runErr != nil {
		logger.Debug("command_failed", zap.String("cmd", cmd), zap.Error(runErr))
		os.Exit(report(runErr, cmd))
	}
}

// report prints the user-facing message for err and returns the exit code.
func report(err error, cmd string) int {
	if errors.Is(err, apperr.ErrEmptyResult) {
		if cmd == "recs" {
			fmt.Println("No recommendations yet.")
		} else {
			fmt.Println(apperr.UserMessage(err, ""))
		}
		return 0
	}
	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	fallback := map[string]string{
		"search":   "Search failed.",
		"triggers": "Failed to load triggers.",
		"alerts":   "Failed to load triggers.",
		"add":      "Failed to set trigger.",
		"rm":       "Failed to delete trigger.",
		"recs":     "Failed to load recommendations.",
		"watch":    "Watch stopped.",
	}[cmd]
	fmt.Fprintln(os.Stderr, apperr.UserMessage(err, fallback))
	return 1
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	term := fs.String("term", "", "search term")
	zip := fs.String("zip", "", "5-digit ZIP for local prices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *term == "" && fs.NArg() > 0 {
		*term = fs.Arg(0)
	}

	items, err := a.api.SearchPrices(ctx, *term, *zip)
	if err != nil {
		return err
	}
	a.api.RecordSearchTerm(ctx, *term)
	printItems(os.Stdout, items)
	return nil
}

func (a *app) triggers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("triggers", flag.ContinueOnError)
	zip := fs.String("zip", "", "5-digit ZIP for local prices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ts, err := a.api.ListTriggers(ctx, *zip)
	if err != nil {
		return err
	}
	printTriggers(os.Stdout, ts)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	name := fs.String("name", "", "item name")
	target := fs.String("target", "", "target price, e.g. 2.50")
	zip := fs.String("zip", "", "5-digit ZIP for local prices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	nt, err := validate.Trigger(*name, *target, *zip)
	if err != nil {
		return err
	}
	t, err := a.api.CreateTrigger(ctx, nt)
	if err != nil {
		return err
	}
	fmt.Printf("Trigger set for %s (id %s).\n", t.Name, t.ID)
	printTriggers(os.Stdout, []domain.Trigger{t})
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	id := fs.String("id", "", "trigger id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return &apperr.ValidationError{Field: "id", Reason: "Please give a trigger id."}
	}
	if err := a.api.DeleteTrigger(ctx, domain.TriggerID(*id)); err != nil {
		return err
	}
	fmt.Printf("Trigger %s deleted.\n", *id)
	return nil
}

func (a *app) alerts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("alerts", flag.ContinueOnError)
	zip := fs.String("zip", "", "5-digit ZIP for local prices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	snap, err := tracker.New(a.api, *zip, a.log).Refresh(ctx)
	if err != nil {
		return err
	}
	printAlerts(os.Stdout, snap.Alerts)
	return nil
}

func (a *app) recs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recs", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	recs, err := a.api.Recommendations(ctx)
	if err != nil {
		return err
	}
	printRecommendations(os.Stdout, recs)
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	zip := fs.String("zip", "", "5-digit ZIP for local prices")
	interval := fs.Duration("interval", a.cfg.Interval, "poll interval")
	cooldown := fs.Duration("cooldown", a.cfg.Cooldown, "minimum gap between repeated sale notices")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var notified repo.NotificationStore
	if a.cfg.DatabaseURL != "" {
		s, err := pg.New(ctx, a.cfg.DatabaseURL, a.log)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Migrate(ctx); err != nil {
			return err
		}
		notified = s
	} else {
		notified = memory.New()
	}

	notifiers := notify.Multi{notify.NewWriter(os.Stdout)}
	if slack := notify.NewSlack(a.cfg.SlackWebhook); slack != nil {
		notifiers = append(notifiers, slack)
	}

	tr := tracker.New(a.api, *zip, a.log)
	al := scheduler.NewAlerter(tr, notified, notifiers, scheduler.AlerterConfig{
		Cooldown:     *cooldown,
		PollInterval: *interval,
	}, a.log)

	fmt.Printf("Watching triggers every %s. Ctrl-C to stop.\n", interval.Round(time.Second))
	if err := al.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

var _ tracker.Source = (*client.Client)(nil)

// Command pos is the operator terminal: it shows a showtime's seat map,
// holds seats as the operator picks them, follows other terminals live
// and books the selection.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/apiclient"
	"github.com/iliyamo/cinema-pos/internal/config"
	"github.com/iliyamo/cinema-pos/internal/live"
	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/pos"
)

const help = `commands:
  show <showtime-id>      open a showtime (releases seats of the previous one)
  click <seat> [seat...]  hold or release seats, e.g. click A1 A5-6
  map                     redraw the seat map
  menu                    list food and drinks
  food <id> <qty>         set a food/drink quantity (0 removes it)
  quote                   price the current selection
  book pickup|prepaid     book the selection
  refresh                 re-read seat state from the server
  leave                   release every held seat and close the showtime
  quit                    leave and exit`

func main() {
	cfg := config.LoadTerminal()
	log := observability.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := apiclient.New(cfg.ServerURL, cfg.Email, cfg.Password, cfg.HTTPTimeout)
	if err := client.Login(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "login failed:", err)
		os.Exit(1)
	}

	var channel pos.Channel
	if rdb := config.NewRedisClient(config.LoadRedisConfig()); rdb != nil {
		lc := live.NewChannel(rdb, log)
		defer rdb.Close()
		defer lc.Close()
		channel = lc
	} else {
		fmt.Fprintln(os.Stderr, "redis unreachable: seat map updates only on refresh")
	}

	t := &terminal{out: os.Stdout}
	t.session = pos.NewSession(client, channel,
		pos.WithLogger(log),
		pos.WithGateway(client),
		pos.WithOperatorID(client.OperatorID()),
		pos.WithBookingType(model.BookingType(strings.ToUpper(cfg.BookingType))),
		pos.WithOnChange(func(pos.View) { t.dirty.Store(true) }),
	)
	defer func() {
		t.session.Close(context.Background())
		if err := client.Logout(context.Background()); err != nil {
			log.WithError(err).Warn("logout failed")
		}
	}()

	fmt.Fprintf(t.out, "logged in as %s (operator %d)\n%s\n", cfg.Email, client.OperatorID(), help)
	t.loop(ctx, os.Stdin)
}

type terminal struct {
	session *pos.Session
	out     io.Writer
	// dirty is set by live updates; the map is redrawn before the next prompt.
	dirty atomic.Bool
}

func (t *terminal) loop(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		if t.dirty.Swap(false) && t.session.Showtime() != nil {
			t.drawMap()
		}
		fmt.Fprint(t.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(t.out)
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := t.exec(ctx, strings.Fields(line)); quit {
				return
			}
		}
	}
}

// exec runs one command and reports whether the terminal should exit.
func (t *terminal) exec(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		return false
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprintln(t.out, help)
	case "show":
		err = t.show(ctx, args)
	case "click":
		err = t.click(ctx, args)
	case "map":
		t.drawMap()
	case "menu":
		renderMenu(t.out, t.session.Menu(), t.session.FoodDrinks())
	case "food":
		err = t.food(args)
	case "quote":
		err = t.quote()
	case "book":
		err = t.book(ctx, args)
	case "refresh":
		if err = t.session.Refresh(ctx); err == nil {
			t.drawMap()
		}
	case "leave":
		t.session.Abandon(ctx)
		fmt.Fprintln(t.out, "showtime closed")
	default:
		err = errors.Newf("unknown command %q, try help", cmd)
	}
	if err != nil {
		fmt.Fprintln(t.out, "error:", describe(err))
	}
	return false
}

func (t *terminal) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show <showtime-id>")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return errors.Newf("invalid showtime id %q", args[0])
	}
	if err := t.session.SelectShowtime(ctx, id); err != nil {
		return err
	}
	t.drawMap()
	return nil
}

func (t *terminal) click(ctx context.Context, labels []string) error {
	if len(labels) == 0 {
		return errors.New("usage: click <seat> [seat...]")
	}
	for _, label := range labels {
		outcome, err := t.session.Click(ctx, label)
		if err != nil {
			fmt.Fprintf(t.out, "%s: %s\n", label, describe(err))
			continue
		}
		switch outcome {
		case pos.ClickHeld:
			fmt.Fprintf(t.out, "%s held\n", label)
		case pos.ClickReleased:
			fmt.Fprintf(t.out, "%s released\n", label)
		}
	}
	t.drawMap()
	return nil
}

func (t *terminal) food(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: food <id> <qty>")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return errors.Newf("invalid food/drink id %q", args[0])
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Newf("invalid quantity %q", args[1])
	}
	return t.session.SetFoodDrink(id, qty)
}

func (t *terminal) quote() error {
	q, err := t.session.Quote()
	if err != nil {
		return err
	}
	renderQuote(t.out, q)
	return nil
}

func (t *terminal) book(ctx context.Context, args []string) error {
	method := model.PayOnPickup
	if len(args) == 1 && strings.EqualFold(args[0], "prepaid") {
		method = model.Prepaid
	} else if len(args) != 1 || !strings.EqualFold(args[0], "pickup") {
		return errors.New("usage: book pickup|prepaid")
	}

	res, err := t.session.Finalize(ctx, method)
	if res != nil {
		fmt.Fprintf(t.out, "booking #%d created, total %d\n", res.Booking.ID, res.Booking.TotalPrice)
		renderQuote(t.out, res.Quote)
		if res.Checkout != nil {
			fmt.Fprintf(t.out, "customer pays at: %s (payment %s)\n", res.Checkout.RedirectURL, res.Checkout.PaymentID)
		}
		if res.PayOnPickupFallback {
			fmt.Fprintln(t.out, "payment could not be started: collect payment on pickup")
		}
	}
	if errors.Is(err, pos.ErrStaleState) {
		t.drawMap()
	}
	return err
}

func (t *terminal) drawMap() {
	t.dirty.Store(false)
	renderMap(t.out, t.session.Showtime(), t.session.Catalog(), t.session.View())
}

// describe shortens errors the operator can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, pos.ErrSeatConflict):
		return "seat is held or booked by someone else"
	case errors.Is(err, pos.ErrStaleState):
		return "seat state changed, please re-select seats"
	case errors.Is(err, pos.ErrCatalogUnavailable):
		return "seat map unavailable: " + err.Error()
	case errors.Is(err, pos.ErrEmptySelection):
		return "select at least one seat first"
	case errors.Is(err, pos.ErrNoShowtime):
		return "open a showtime first (show <id>)"
	case errors.Is(err, pos.ErrSeatPending):
		return "wait for the previous request on this seat"
	case errors.Is(err, pos.ErrNoGateway):
		return "prepaid booking is not available"
	}
	return err.Error()
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ent0n29/receptionist/internal/assistant"
	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/conversation"
	"github.com/ent0n29/receptionist/internal/reply"
)

const helpText = `Type a message to talk to the receptionist, or a command:
  /bookings              upcoming bookings
  /all                   every booking
  /book {json}           create a booking directly
  /status <id> <status>  set pending, confirmed or cancelled
  /stages                turn latency by stage
  /reset                 start a new conversation
  /quit                  exit`

// console is a line-oriented front desk. It owns the transcript; the desk
// itself is stateless between turns.
type console struct {
	desk    *assistant.Desk
	out     io.Writer
	loc     *time.Location
	history []conversation.Turn
}

func newConsole(desk *assistant.Desk, out io.Writer, loc *time.Location) *console {
	if loc == nil {
		loc = time.UTC
	}
	return &console{desk: desk, out: out, loc: loc}
}

func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	fmt.Fprintln(c.out, helpText)
	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			line = strings.TrimSpace(line)
			if line == "" {
				c.prompt()
				continue
			}
			if strings.HasPrefix(line, "/") {
				if quit := c.command(ctx, line); quit {
					return nil
				}
			} else {
				c.say(ctx, line)
			}
			c.prompt()
		}
	}
}

func (c *console) prompt() {
	fmt.Fprint(c.out, "you> ")
}

func (c *console) say(ctx context.Context, text string) {
	history := conversation.Append(c.history, conversation.User(text))
	out, err := c.desk.HandleTurn(ctx, history)
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "receptionist> %s\n", out.Reply)

	// A completed change closes the thread so the next request starts clean.
	if out.Created != nil || out.Updated != nil {
		c.history = nil
		return
	}
	c.history = conversation.Append(history, conversation.Assistant(out.Reply))
}

func (c *console) command(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(c.out, helpText)
	case "/reset":
		c.history = nil
		fmt.Fprintln(c.out, "conversation cleared")
	case "/bookings":
		bookings, err := c.desk.Upcoming(ctx)
		c.printBookings(bookings, err)
	case "/all":
		bookings, err := c.desk.Bookings(ctx)
		c.printBookings(bookings, err)
	case "/book":
		draft, err := booking.ParseDraft([]byte(rest))
		if err == nil {
			var created booking.Booking
			created, err = c.desk.Book(ctx, draft)
			if err == nil {
				fmt.Fprintf(c.out, "created %s\n", c.line(created))
				return false
			}
		}
		c.printError(err)
	case "/status":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "usage: /status <id> <pending|confirmed|cancelled>")
			return false
		}
		updated, found, err := c.desk.SetStatus(ctx, fields[0], fields[1])
		switch {
		case err != nil:
			c.printError(err)
		case !found:
			fmt.Fprintf(c.out, "no booking %s\n", fields[0])
		default:
			fmt.Fprintf(c.out, "updated %s\n", c.line(updated))
		}
	case "/stages":
		c.printStages()
	default:
		fmt.Fprintf(c.out, "unknown command %s, try /help\n", name)
	}
	return false
}

func (c *console) printBookings(bookings []booking.Booking, err error) {
	if err != nil {
		c.printError(err)
		return
	}
	if len(bookings) == 0 {
		fmt.Fprintln(c.out, "no bookings")
		return
	}
	for _, b := range bookings {
		fmt.Fprintln(c.out, c.line(b))
	}
}

func (c *console) printError(err error) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(c.out, "invalid fields: %s\n", strings.Join(verr.FieldNames(), ", "))
		return
	}
	fmt.Fprintf(c.out, "error: %v\n", err)
}

func (c *console) printStages() {
	snap := c.desk.Engine().Stages().Snapshot()
	if len(snap.Stages) == 0 {
		fmt.Fprintln(c.out, "no turns yet")
		return
	}
	for _, s := range snap.Stages {
		fmt.Fprintf(c.out, "%-10s n=%-4d p50=%.2fms p95=%.2fms\n", s.Stage, s.Samples, s.P50MS, s.P95MS)
	}
	for _, ind := range snap.Indicators {
		fmt.Fprintf(c.out, "%-24s %d\n", ind.Name, ind.Count)
	}
}

func (c *console) line(b booking.Booking) string {
	return fmt.Sprintf("%s  %-10s %-22s %-12s %s (%d min)",
		b.ID, b.Status, b.StartTime.In(c.loc).Format(reply.TimeLayout), b.Service, b.GuestName, b.DurationMinutes)
}

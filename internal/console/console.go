package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/career-clicker/internal/engine"
)

const helpText = `commands:
  take <job>                  start a queued job
  work <job>                  spend a turn on an active job
  end turn | end day          pass time
  buy tool <id>               buy a tool
  buy upgrade <id>            buy an upgrade
  buy materials <name> <qty>  buy fuel, lumber, steel, concrete or permits
  assign <member> [job]       put a crew member on a job (no job unassigns)
  hire [name] [skill]         hire a crew member
  policy <id> <value>         set a policy (on/off or a level)
  promote                     claim the next milestone
  bid <job>                   bid on a contract
  prestige [choice...]        reset for charters
  dev on|off                  toggle developer mode
  dev cash|materials|turns|finish  developer shortcuts (dev mode only)
  status | help | quit`

// StatusLine summarizes s in one line.
func StatusLine(s *engine.State) string {
	return fmt.Sprintf("Day %d | %s | %d turns left | $%s | rep %s | morale %d%% | %d active, %d done",
		s.Day,
		s.Stage,
		s.TurnsLeft,
		humanize.Commaf(s.Resources.Cash),
		humanize.Ftoa(s.Resources.Reputation),
		int(s.Resources.Morale*100+0.5),
		len(s.Jobs.Active),
		len(s.Jobs.Completed),
	)
}

// Console reads commands from a line stream and applies them to a session.
type Console struct {
	Session *engine.Session
	Parser  *Parser
	In      io.Reader
	Out     io.Writer
}

func New(session *engine.Session, in io.Reader, out io.Writer) *Console {
	return &Console{
		Session: session,
		Parser:  NewParser(session.Game().Content),
		In:      in,
		Out:     out,
	}
}

// Run processes lines until quit, end of input, or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	fmt.Fprintln(c.Out, StatusLine(c.Session.Snapshot()))
	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read console: %w", err)
					}
				default:
				}
				return nil
			}
			if quit := c.Exec(line); quit {
				return nil
			}
			c.prompt()
		}
	}
}

func (c *Console) prompt() {
	fmt.Fprint(c.Out, "> ")
}

// Exec handles one line and reports whether the console should stop.
func (c *Console) Exec(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	cmd, err := c.Parser.Parse(c.Session.Snapshot(), line)
	if err != nil {
		fmt.Fprintln(c.Out, err)
		return false
	}

	switch cmd.Query {
	case QueryQuit:
		return true
	case QueryHelp:
		fmt.Fprintln(c.Out, helpText)
		return false
	case QueryStatus:
		fmt.Fprintln(c.Out, StatusLine(c.Session.Snapshot()))
		return false
	}

	before := c.Session.Snapshot()
	st, changed, err := c.Session.Dispatch(*cmd.Intent)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownIntent) {
			fmt.Fprintln(c.Out, err)
			return false
		}
		slog.Error("console intent failed", "type", cmd.Intent.Type, "error", err)
		fmt.Fprintln(c.Out, "something went wrong")
		return false
	}
	if !changed {
		fmt.Fprintln(c.Out, "nothing happened")
		return false
	}
	if n := len(st.Ledger); n > 0 && (len(before.Ledger) == 0 || st.Ledger[n-1].ID != before.Ledger[len(before.Ledger)-1].ID) {
		e := st.Ledger[n-1]
		fmt.Fprintf(c.Out, "%s (%s)\n", e.Label, e.Delta)
	}
	fmt.Fprintln(c.Out, StatusLine(st))
	return false
}

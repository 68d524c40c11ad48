package rawclient

import (
	"context"
	"errors"
	"io"
	"strings"

	"dqx0.com/go/rawrest/internal/obs"
)

// PromptAgain is asked after every graceful close.
const PromptAgain = "¿Quieres enviar otra solicitud? (s/n): "

type loopState int

const (
	stateCycle loopState = iota
	stateAwaitingDecision
	stateTerminated
)

// Client drives request cycles until the user declines or a fatal error
// happens.
type Client struct {
	Console   *Console
	Transport *Transport
	Logger    obs.Logger
}

// Run loops over build, send and ask-again. It returns nil when the user
// stops (a "no", any other answer, or end of input) and the fatal error
// otherwise: ErrInvalidURL, ErrConnection or ctx's error. Cancelling ctx
// interrupts a prompt as well as a request in flight.
func (c *Client) Run(ctx context.Context) error {
	logger := obs.Or(c.Logger)
	cycles := 0
	state := stateCycle
	var fatal error
	for state != stateTerminated {
		switch state {
		case stateCycle:
			if err := ctx.Err(); err != nil {
				c.Console.Warnf("Solicitud cancelada")
				fatal = err
				state = stateTerminated
				continue
			}
			cycles++
			if err := c.cycle(ctx); err != nil {
				if !errors.Is(err, io.EOF) {
					fatal = err
				}
				state = stateTerminated
				continue
			}
			c.Console.Infof("Conexión cerrada")
			state = stateAwaitingDecision
		case stateAwaitingDecision:
			answer, err := c.Console.Ask(ctx, PromptAgain)
			switch {
			case isCancel(err):
				c.Console.Warnf("Solicitud cancelada")
				fatal = err
				state = stateTerminated
			case err == nil && strings.EqualFold(strings.TrimSpace(answer), "s"):
				state = stateCycle
			default:
				state = stateTerminated
			}
		}
	}
	logger.Logf(obs.Debug, "client stopped after %d cycle(s): %v", cycles, fatal)
	return fatal
}

func (c *Client) cycle(ctx context.Context) error {
	d, err := Build(ctx, c.Console)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidURL):
			c.Console.Errorf("URL no válida")
		case isCancel(err):
			c.Console.Warnf("Solicitud cancelada")
		}
		return err
	}
	s := &Session{Transport: c.Transport, Console: c.Console}
	if err := s.Run(ctx, d); err != nil {
		switch {
		case isCancel(err):
			c.Console.Warnf("Solicitud cancelada")
		default:
			c.Console.Errorf("Error en la conexión: %v", err)
		}
		return err
	}
	return nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/netbirdio/iceagent/agent"
	nberrors "github.com/netbirdio/iceagent/errors"
)

const recvAttemptTimeout = 500 * time.Millisecond

var (
	pingPayload = []byte{1, 2, 3, 4}
	pongPayload = []byte{42}
)

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Connect two local agents and exchange a packet on every component",
	Long: "Creates a controlling and a controlled agent, trickles candidates between them, waits until every " +
		"component is connected and exchanges a ping and a pong per component",
	Args: cobra.NoArgs,
	RunE: loopback,
}

func loopback(cmd *cobra.Command, _ []string) (err error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	rt, err := startRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.close(); closeErr != nil {
			err = nberrors.FormatErrorOrNil(multierror.Append(err, closeErr))
		}
	}()

	left, err := rt.newAgent(true)
	if err != nil {
		return fmt.Errorf("create controlling agent: %w", err)
	}
	right, err := rt.newAgent(false)
	if err != nil {
		return fmt.Errorf("create controlled agent: %w", err)
	}

	leftStream, err := rt.buildStream(left)
	if err != nil {
		return fmt.Errorf("build controlling stream: %w", err)
	}
	defer leftStream.Close()
	rightStream, err := rt.buildStream(right)
	if err != nil {
		return fmt.Errorf("build controlled stream: %w", err)
	}
	defer rightStream.Close()

	leftStream.SetRemoteCredentials(rightStream.LocalUfrag(), rightStream.LocalPwd())
	rightStream.SetRemoteCredentials(leftStream.LocalUfrag(), leftStream.LocalPwd())

	leftComponents := leftStream.TakeComponents()
	rightComponents := rightStream.TakeComponents()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return trickle(gctx, leftStream, rightStream) })
	g.Go(func() error { return trickle(gctx, rightStream, leftStream) })
	for i := range leftComponents {
		l, r := leftComponents[i], rightComponents[i]
		g.Go(func() error { return exchange(gctx, l, r) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := range leftComponents {
		fmt.Fprintf(out, "component %d: %s/%s, ping %v pong %v\n",
			leftComponents[i].ID().ComponentID, leftComponents[i].State(), rightComponents[i].State(), pingPayload, pongPayload)
	}
	return nil
}

// trickle forwards every local candidate of from to the peer stream until gathering is done.
func trickle(ctx context.Context, from, to *agent.Stream) error {
	for {
		c, err := from.NextCandidate(ctx)
		if errors.Is(err, io.EOF) {
			log.Debugf("stream %d finished gathering", from.ID())
			return nil
		}
		if err != nil {
			return fmt.Errorf("read candidates of stream %d: %w", from.ID(), err)
		}
		log.Debugf("stream %d: forwarding candidate %s", from.ID(), c)
		to.AddRemoteCandidate(c)
	}
}

// exchange waits until both ends of a component pair are connected, then sends the ping from l to
// r and the pong back.
func exchange(ctx context.Context, l, r *agent.StreamComponent) error {
	for _, c := range []*agent.StreamComponent{l, r} {
		if _, err := c.WaitForState(agent.StateConnected).Wait(ctx); err != nil {
			return fmt.Errorf("component %s did not connect: %w", c.ID(), err)
		}
		log.Infof("component %s connected", c.ID())
	}

	if err := sendUntilReceived(ctx, l, r, pingPayload); err != nil {
		return fmt.Errorf("ping on %s: %w", l.ID(), err)
	}
	if err := sendUntilReceived(ctx, r, l, pongPayload); err != nil {
		return fmt.Errorf("pong on %s: %w", r.ID(), err)
	}
	return nil
}

// sendUntilReceived resends payload from one side until the other side reads it. Sends are best
// effort, so the first packets after connecting may be lost.
func sendUntilReceived(ctx context.Context, from, to *agent.StreamComponent, payload []byte) error {
	operation := func() error {
		from.Send(append([]byte(nil), payload...))

		recvCtx, cancel := context.WithTimeout(ctx, recvAttemptTimeout)
		defer cancel()
		for {
			pkt, err := to.Recv(recvCtx)
			if errors.Is(err, io.EOF) {
				return backoff.Permanent(fmt.Errorf("component %s closed", to.ID()))
			}
			if err != nil {
				return err
			}
			if bytes.Equal(pkt, payload) {
				return nil
			}
			log.Debugf("component %s: ignoring unexpected packet %v", to.ID(), pkt)
		}
	}

	return backoff.RetryNotify(operation, sendBackoff(ctx), func(err error, next time.Duration) {
		log.Debugf("no packet on %s yet (%v), resending in %s", to.ID(), err, next)
	})
}

func sendBackoff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          1.5,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      20 * time.Second,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, ctx)
}

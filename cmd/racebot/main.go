// Command racebot drives a full race against a running server. One bot
// creates a room, the others join it by code, the host starts the race, every
// bot streams a few position updates and crosses the finish line, and the
// final rankings are printed.
//
// It is handy for smoke testing a deployment or watching a room fill up in
// the REST API and MCP tools.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/raceroom/game/room"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("component", "racebot")

// raceOptions holds what one scripted race needs
type raceOptions struct {
	URL     string
	Bots    int
	Updates int
	Delay   time.Duration
	Wait    time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "racebot",
		Usage: "Run a scripted race against a race room server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "Websocket gateway URL", Sources: cli.EnvVars("RACEBOT_URL")},
			&cli.IntFlag{Name: "bots", Value: 3, Usage: "Number of racers, including the host"},
			&cli.IntFlag{Name: "updates", Value: 20, Usage: "Position updates each racer sends before finishing"},
			&cli.DurationFlag{Name: "delay", Value: 50 * time.Millisecond, Usage: "Pause between position updates"},
			&cli.DurationFlag{Name: "wait", Value: 10 * time.Second, Usage: "How long to wait for any server reply"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("v") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			rankings, err := runRace(ctx, raceOptions{
				URL:     cmd.String("url"),
				Bots:    int(cmd.Int("bots")),
				Updates: int(cmd.Int("updates")),
				Delay:   cmd.Duration("delay"),
				Wait:    cmd.Duration("wait"),
			})
			if err != nil {
				return err
			}
			printRankings(os.Stdout, rankings)
			return nil
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("Race failed")
	}
}

// runRace plays one race from room creation to final rankings.
func runRace(ctx context.Context, opts raceOptions) ([]room.Participant, error) {
	if opts.Bots < 1 {
		return nil, fmt.Errorf("need at least one bot, got %d", opts.Bots)
	}

	bots := make([]*Bot, 0, opts.Bots)
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()

	for i := 1; i <= opts.Bots; i++ {
		b, err := Dial(ctx, opts.URL, fmt.Sprintf("Bot %d", i), opts.Wait)
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)
	}

	host := bots[0]
	code, hostPlayer, err := host.CreateRoom(ctx)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	log.WithField("room", code).Info("Room created")

	spawns := map[*Bot]room.Kinematics{host: hostPlayer.Kinematics}
	for _, b := range bots[1:] {
		p, err := b.JoinRoom(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%s join %s: %w", b.Nickname, code, err)
		}
		spawns[b] = p.Kinematics
		log.WithFields(logrus.Fields{"room": code, "bot": b.Nickname, "color": p.Color}).Info("Joined")
	}

	if err := host.StartGame(code); err != nil {
		return nil, err
	}
	for _, b := range bots {
		if err := b.WaitStarted(ctx); err != nil {
			return nil, fmt.Errorf("%s start: %w", b.Nickname, err)
		}
	}
	log.WithField("room", code).Info("Race started")

	results := make([][]room.Participant, len(bots))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range bots {
		g.Go(func() error {
			if err := b.Drive(gctx, code, spawns[b], opts.Updates, opts.Delay); err != nil {
				return fmt.Errorf("%s drive: %w", b.Nickname, err)
			}
			rankings, err := b.WaitFinished(gctx)
			if err != nil {
				return fmt.Errorf("%s finish: %w", b.Nickname, err)
			}
			results[i] = rankings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results[0], nil
}

func printRankings(w io.Writer, rankings []room.Participant) {
	fmt.Fprintln(w, "🏁 Final rankings")
	for i, p := range rankings {
		var ms int64
		if p.FinishTime != nil {
			ms = *p.FinishTime
		}
		fmt.Fprintf(w, "%d. %s %s %.2fs\n", i+1, p.Nickname, p.Color, float64(ms)/1000)
	}
}

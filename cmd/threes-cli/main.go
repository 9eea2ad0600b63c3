package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/threes-games/threes/internal/cache"
	"github.com/threes-games/threes/internal/database"
	statDb "github.com/threes-games/threes/internal/database/stat/database"
	"github.com/threes-games/threes/internal/dice"
	"github.com/threes-games/threes/internal/logging"
	"github.com/threes-games/threes/internal/shutdown"
	"github.com/threes-games/threes/internal/threesbot"
	"github.com/threes-games/threes/internal/threesbot/match"
	"github.com/threes-games/threes/internal/threesbot/resource"
	"github.com/threes-games/threes/internal/threesbot/util"
)

const (
	guildID  int64 = 1
	playerID int64 = 1
	botID    int64 = 2
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, resource.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		resource.GreetingCLI,
		resource.ProjectName,
		resource.ProjectVersion,
		resource.GithubURL,
	)

	ctx, done := shutdown.New()
	defer done()
	config := threesbot.Config{}
	if err := envconfig.Process("", &config); err != nil {
		logging.DefaultLogger().Fatalf("processing the config: %v", err)
	}

	logger := logging.NewLogger(config.Debug)
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, config); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, config threesbot.Config) error {
	logger := logging.FromContext(ctx).Named("main.realMain")

	db, err := database.NewFromEnv(ctx, &config.Db)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}
	defer db.Close(ctx)

	statCache, err := cache.NewLRU(config.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	notifier := newTermNotifier(map[int64]string{playerID: "You", botID: "Dealer"})
	manager := threesbot.NewManager(&config, statDb.New(db, statCache), notifier, dice.New())
	manager.Run(ctx)
	defer manager.Stop()

	session, err := openTable(manager)
	if err != nil {
		return err
	}

	fmt.Println(`Commands: roll, keep <dice...>, rematch, decline, stats, top, reset, new, quit`)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "roll":
			if _, err := session.Roll(playerID); err != nil {
				printActionErr(err)
			}
		case "keep":
			indices, err := parseIndices(fields[1:])
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := session.Keep(playerID, indices); err != nil {
				printActionErr(err)
			}
		case "rematch":
			if err := session.Rematch(playerID); err != nil {
				printActionErr(err)
			}
		case "decline":
			if err := session.Decline(playerID); err != nil {
				printActionErr(err)
			}
		case "stats":
			printStats(manager)
		case "top":
			printLeaderboard(manager)
		case "reset":
			if err := manager.ResetStats(guildID, playerID); err != nil {
				if errors.Is(err, statDb.ErrNotFound) {
					fmt.Println("No games on record yet")
					continue
				}
				fmt.Println("reset failed:", err)
				continue
			}
			fmt.Println("Record wiped")
		case "new":
			next, err := openTable(manager)
			if err != nil {
				if errors.Is(err, threesbot.ErrTableBusy) {
					fmt.Println(resource.TextTableBusyMsg)
					continue
				}
				return err
			}
			session = next
		case "quit", "exit":
			return nil
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Errorf("read stdin: %v", err)
	}
	return nil
}

func openTable(manager *threesbot.Manager) (*match.Session, error) {
	code, err := util.GenerateCodeHash()
	if err != nil {
		return nil, fmt.Errorf("generate table code: %w", err)
	}

	session, err := manager.ChallengeBot(code, guildID, playerID, botID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// parseIndices turns 1-based die positions from the prompt into the
// 0-based indices of the current roll.
func parseIndices(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("keep needs at least one die position, e.g. keep 1 3")
	}

	indices := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("not a die position: %s", arg)
		}
		indices = append(indices, n-1)
	}
	return indices, nil
}

func printActionErr(err error) {
	switch {
	case errors.Is(err, match.ErrNotYourTurn):
		fmt.Println(resource.TextNotYourTurnMsg)
	case errors.Is(err, match.ErrSessionClosed):
		fmt.Println(`The table is closed, start another game with "new"`)
	default:
		fmt.Println(err)
	}
}

func printStats(manager *threesbot.Manager) {
	stat, err := manager.Stats(guildID, playerID)
	if err != nil {
		if errors.Is(err, statDb.ErrNotFound) {
			fmt.Println("No games on record yet")
			return
		}
		fmt.Println("stats unavailable:", err)
		return
	}
	fmt.Printf("Games %d, wins %d, losses %d, moon shots %d\n", stat.Games(), stat.Wins, stat.Losses, stat.MoonShots)
}

func printLeaderboard(manager *threesbot.Manager) {
	stats, err := manager.Leaderboard(guildID)
	if err != nil {
		fmt.Println("leaderboard unavailable:", err)
		return
	}
	if len(stats) == 0 {
		fmt.Println("No games on record yet")
		return
	}
	for i, stat := range stats {
		fmt.Printf("%d. player %d: %d wins, %d losses\n", i+1, stat.UserID, stat.Wins, stat.Losses)
	}
}

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/sidebet"
	"github.com/lox/blackjack/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSideBets(t *testing.T) {
	bets, err := parseSideBets([]string{"perfect_pairs:5", "21+3:10"})
	require.NoError(t, err)
	assert.Equal(t, []simulator.SideBet{
		{Kind: sidebet.PerfectPairs, Amount: 5},
		{Kind: sidebet.TwentyOnePlusThree, Amount: 10},
	}, bets)

	for _, bad := range []string{"perfect_pairs", "keno:5", "perfect_pairs:zero", "royal_match:-1", "insurance:5"} {
		_, err := parseSideBets([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestCLIParses(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"simulate", "--rounds", "50", "--player", "never-bust", "--side-bet", "perfect_pairs:5"})
	require.NoError(t, err)
	assert.Equal(t, 50, cli.Simulate.Rounds)
	assert.Equal(t, "never-bust", cli.Simulate.Player)
	assert.Equal(t, []string{"perfect_pairs:5"}, cli.Simulate.SideBet)
	assert.Equal(t, "info", cli.LogLevel)

	_, err = parser.Parse([]string{"simulate", "--player", "martingale"})
	assert.Error(t, err)
}

func TestGlobalsLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.log")
	g := Globals{LogLevel: "debug", LogFile: path}
	logger, closeLog, err := g.Logger(io.Discard)
	require.NoError(t, err)
	logger.Debug("hello")
	closeLog()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")

	_, _, err = (&Globals{LogLevel: "loud"}).Logger(io.Discard)
	assert.Error(t, err)
}

func TestPrintRules(t *testing.T) {
	var buf bytes.Buffer
	printRules(&buf, config.Default(), server.DefaultConfig())
	out := buf.String()
	assert.Contains(t, out, "6D S17 3:2 DAS LS")
	assert.Contains(t, out, "stands on soft 17")
	assert.Contains(t, out, "pays 3:2 (1.5x the bet)")
	assert.Contains(t, out, "perfect_pairs:")
	assert.Contains(t, out, "localhost:8080")
}

func TestHistoryFromDirectory(t *testing.T) {
	dir := t.TempDir()
	flags := HistoryFlags{HistoryDir: dir}
	sinks, err := flags.Open(context.Background(), log.New(io.Discard))
	require.NoError(t, err)
	require.NotNil(t, sinks)

	_, err = simulator.New(simulator.Config{
		Rules:    config.Default(),
		Rounds:   20,
		Tables:   2,
		Seed:     7,
		Recorder: sinks,
	}).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, sinks.Close())

	var buf bytes.Buffer
	cmd := HistoryCmd{Dir: dir, Last: 2}
	require.NoError(t, cmd.printDir(&buf))
	out := buf.String()
	assert.Contains(t, out, "Rounds:     40")
	assert.Contains(t, out, `"dealer_total"`)
}

func TestHistoryFlagsEmpty(t *testing.T) {
	sinks, err := HistoryFlags{}.Open(context.Background(), log.New(io.Discard))
	require.NoError(t, err)
	assert.Nil(t, sinks)
}

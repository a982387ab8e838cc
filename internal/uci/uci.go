// Package uci speaks the Universal Chess Interface over stdin/stdout and
// glues the protocol to the search pool.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelchess/kestrel/internal/analytics"
	"github.com/kestrelchess/kestrel/internal/board"
	"github.com/kestrelchess/kestrel/internal/engine"
	"github.com/kestrelchess/kestrel/internal/storage"
)

const (
	engineName   = "Kestrel"
	engineAuthor = "the Kestrel developers"
)

// UCI is the protocol handler. Run reads commands until EOF or quit.
type UCI struct {
	pool     *engine.Pool
	position *board.Position

	// Zobrist keys of the game positions before the current one, oldest
	// first, for repetition detection across the root.
	prevKeys []uint64

	out   io.Writer
	log   zerolog.Logger
	store *storage.Store
	hub   *analytics.Hub

	persistLearning bool
	analyticsPort   int
	syzygyPath      string
}

// New creates a handler writing protocol output to stdout.
func New(pool *engine.Pool, log zerolog.Logger) *UCI {
	u := &UCI{
		pool:     pool,
		position: board.NewPosition(),
		out:      os.Stdout,
		log:      log,
		hub:      analytics.NewHub(log),
	}
	u.prevKeys = nil
	pool.OnInfo = u.sendInfo
	pool.OnBestMove = u.sendBestMove
	return u
}

// SetOutput redirects protocol output, for tests.
func (u *UCI) SetOutput(w io.Writer) {
	u.out = w
}

// SetStore attaches persistent storage for options and learned state.
func (u *UCI) SetStore(store *storage.Store) {
	u.store = store
	if store == nil {
		return
	}

	if opts, err := store.LoadOptions(); err == nil {
		for name, value := range opts {
			u.applyOption(name, value)
		}
	}

	snap, err := store.LoadSnapshot()
	if err != nil {
		u.log.Warn().Err(err).Msg("discarding search snapshot")
		return
	}
	if snap != nil {
		u.pool.ImportMainHistory(snap.MainHistory)
		u.log.Info().Msg("restored search snapshot")
	}
}

// Run is the protocol main loop.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !u.Handle(line) {
			break
		}
	}
	u.shutdown()
}

// Handle dispatches one command line; it returns false on quit.
func (u *UCI) Handle(line string) bool {
	parts := strings.Fields(line)
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		fmt.Fprintln(u.out, "readyok")
	case "ucinewgame":
		u.pool.NewGame()
		u.position = board.NewPosition()
		u.prevKeys = nil
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.pool.StopSearch()
		u.pool.WaitSearchFinished()
	case "ponderhit":
		u.pool.PonderHit()
	case "setoption":
		u.handleSetOption(args)
	case "quit":
		return false

	// Debug commands, outside the protocol proper.
	case "d":
		fmt.Fprintln(u.out, u.position.String())
	case "perft":
		u.handlePerft(args)
	case "bench":
		u.handleBench(args)
	}
	return true
}

func (u *UCI) shutdown() {
	u.pool.StopSearch()
	u.pool.WaitSearchFinished()
	u.hub.Close()

	if u.store != nil && u.persistLearning {
		snap := &storage.SearchSnapshot{MainHistory: u.pool.ExportMainHistory()}
		if err := u.store.SaveSnapshot(snap); err != nil {
			u.log.Warn().Err(err).Msg("saving search snapshot failed")
		}
	}
}

func (u *UCI) handleUCI() {
	opts := u.pool.Options()
	fmt.Fprintf(u.out, "id name %s\n", engineName)
	fmt.Fprintf(u.out, "id author %s\n", engineAuthor)
	fmt.Fprintln(u.out)
	fmt.Fprintf(u.out, "option name Hash type spin default %d min 1 max 33554432\n", opts.HashMB)
	fmt.Fprintf(u.out, "option name Threads type spin default %d min 1 max 512\n", opts.Threads)
	fmt.Fprintf(u.out, "option name MultiPV type spin default %d min 1 max 500\n", opts.MultiPV)
	fmt.Fprintf(u.out, "option name Contempt type spin default %d min -100 max 100\n", opts.Contempt)
	fmt.Fprintf(u.out, "option name Analysis Contempt type combo default Both var Off var White var Black var Both\n")
	fmt.Fprintf(u.out, "option name Move Overhead type spin default %d min 0 max 5000\n", opts.MoveOverhead.Milliseconds())
	fmt.Fprintf(u.out, "option name Skill Level type spin default %d min 0 max 20\n", opts.SkillLevel)
	fmt.Fprintln(u.out, "option name UCI_LimitStrength type check default false")
	fmt.Fprintf(u.out, "option name UCI_Elo type spin default %d min 1350 max 2850\n", opts.Elo)
	fmt.Fprintln(u.out, "option name UCI_AnalyseMode type check default false")
	fmt.Fprintln(u.out, "option name UCI_ShowWDL type check default false")
	fmt.Fprintln(u.out, "option name Ponder type check default false")
	fmt.Fprintln(u.out, "option name SyzygyPath type string default <empty>")
	fmt.Fprintf(u.out, "option name SyzygyProbeDepth type spin default %d min 1 max 100\n", opts.SyzygyProbeDepth)
	fmt.Fprintln(u.out, "option name Analytics Port type spin default 0 min 0 max 65535")
	fmt.Fprintln(u.out, "option name Persist Learning type check default false")
	fmt.Fprintln(u.out, "uciok")
}

// handlePosition parses "position [startpos|fen <fen>] [moves ...]".
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var moveStart int

	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
		moveStart = 1
	case "fen":
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}
		pos, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			fmt.Fprintf(os.Stderr, "info string invalid FEN: %v\n", err)
			return
		}
		u.position = pos
		moveStart = fenEnd
	default:
		return
	}

	u.prevKeys = u.prevKeys[:0]

	if moveStart < len(args) && args[moveStart] == "moves" {
		for _, moveStr := range args[moveStart+1:] {
			move := u.parseMove(moveStr)
			if move == board.NoMove {
				fmt.Fprintf(os.Stderr, "info string invalid move: %s\n", moveStr)
				return
			}
			u.prevKeys = append(u.prevKeys, u.position.Hash)
			u.position.MakeMove(move)
		}
	}
}

// parseMove resolves a UCI move string against the current position's
// legal moves.
func (u *UCI) parseMove(moveStr string) board.Move {
	legal := u.position.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i).String() == moveStr {
			return legal.Get(i)
		}
	}
	return board.NoMove
}

// handleGo parses limits and launches the search.
func (u *UCI) handleGo(args []string) {
	limits := engine.Limits{}

	for i := 0; i < len(args); i++ {
		argAt := func() (int, bool) {
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				i++
				return n, err == nil
			}
			return 0, false
		}

		switch args[i] {
		case "depth":
			if n, ok := argAt(); ok {
				limits.Depth = n
			}
		case "nodes":
			if n, ok := argAt(); ok && n >= 0 {
				limits.Nodes = uint64(n)
			}
		case "mate":
			if n, ok := argAt(); ok {
				limits.Mate = n
			}
		case "movetime":
			if n, ok := argAt(); ok {
				limits.MoveTime = time.Duration(n) * time.Millisecond
			}
		case "wtime":
			if n, ok := argAt(); ok {
				limits.Time[board.White] = time.Duration(n) * time.Millisecond
			}
		case "btime":
			if n, ok := argAt(); ok {
				limits.Time[board.Black] = time.Duration(n) * time.Millisecond
			}
		case "winc":
			if n, ok := argAt(); ok {
				limits.Inc[board.White] = time.Duration(n) * time.Millisecond
			}
		case "binc":
			if n, ok := argAt(); ok {
				limits.Inc[board.Black] = time.Duration(n) * time.Millisecond
			}
		case "movestogo":
			if n, ok := argAt(); ok {
				limits.MovesToGo = n
			}
		case "infinite":
			limits.Infinite = true
		case "ponder":
			limits.Ponder = true
		case "searchmoves":
			for i+1 < len(args) {
				m := u.parseMove(args[i+1])
				if m == board.NoMove {
					break
				}
				limits.SearchMoves = append(limits.SearchMoves, m)
				i++
			}
		}
	}

	u.pool.StartSearch(u.position, u.prevKeys, limits)
}

func (u *UCI) handleSetOption(args []string) {
	var name, value string
	reading := ""
	for _, arg := range args {
		switch arg {
		case "name":
			reading = "name"
		case "value":
			reading = "value"
		default:
			switch reading {
			case "name":
				if name != "" {
					name += " "
				}
				name += arg
			case "value":
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	u.applyOption(name, value)

	if u.store != nil {
		if saved, err := u.store.LoadOptions(); err == nil {
			saved[name] = value
			if err := u.store.SaveOptions(saved); err != nil {
				u.log.Warn().Err(err).Msg("persisting option failed")
			}
		}
	}
}

func (u *UCI) applyOption(name, value string) {
	opts := u.pool.Options()

	switch strings.ToLower(name) {
	case "hash":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			opts.HashMB = n
		}
	case "threads":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			opts.Threads = n
		}
	case "multipv":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			opts.MultiPV = n
		}
	case "contempt":
		if n, err := strconv.Atoi(value); err == nil {
			opts.Contempt = n
		}
	case "analysis contempt":
		switch value {
		case "Off", "White", "Black", "Both":
			opts.AnalysisContempt = value
		}
	case "move overhead":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			opts.MoveOverhead = time.Duration(n) * time.Millisecond
		}
	case "skill level":
		if n, err := strconv.Atoi(value); err == nil {
			opts.SkillLevel = n
		}
	case "uci_limitstrength":
		opts.LimitStrength = strings.EqualFold(value, "true")
	case "uci_elo":
		if n, err := strconv.Atoi(value); err == nil {
			opts.Elo = n
		}
	case "uci_analysemode":
		opts.AnalyseMode = strings.EqualFold(value, "true")
	case "uci_showwdl":
		opts.ShowWDL = strings.EqualFold(value, "true")
	case "ponder":
		// Acknowledged; pondering is driven by "go ponder".
	case "syzygypath":
		u.syzygyPath = value
		if value != "" && value != "<empty>" {
			// No Syzygy file prober ships with the engine; the option is
			// registered so GUIs can set it once a prober is wired.
			fmt.Fprintf(os.Stderr, "info string tablebases at %s not loaded (no prober built in)\n", value)
		}
	case "syzygyprobedepth":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			opts.SyzygyProbeDepth = n
		}
	case "analytics port":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			u.analyticsPort = n
			if err := u.hub.Listen(n); err != nil {
				u.log.Warn().Err(err).Msg("analytics hub failed to start")
			}
		}
	case "persist learning":
		u.persistLearning = strings.EqualFold(value, "true")
	}

	u.pool.SetOptions(opts)
}

// sendInfo renders an info payload onto the wire and mirrors it to the
// analytics hub.
func (u *UCI) sendInfo(info engine.Info) {
	fmt.Fprintf(u.out, "info %s\n", info)

	if info.CurrMove != board.NoMove {
		return
	}
	update := analytics.SearchUpdate{
		Type:     "info",
		Depth:    info.Depth,
		SelDepth: info.SelDepth,
		MultiPV:  info.MultiPV,
		Nodes:    info.Nodes,
		NPS:      info.NPS,
		TimeMS:   info.Time.Milliseconds(),
	}
	if info.Score.IsMate {
		update.MateIn = info.Score.MateIn
	} else {
		update.ScoreCP = info.Score.CP
	}
	for _, m := range info.PV {
		update.PV = append(update.PV, m.String())
	}
	u.hub.Broadcast(update)
}

func (u *UCI) sendBestMove(best, ponder board.Move) {
	if ponder != board.NoMove {
		fmt.Fprintf(u.out, "bestmove %s ponder %s\n", best, ponder)
	} else {
		fmt.Fprintf(u.out, "bestmove %s\n", best)
	}
	u.hub.Broadcast(analytics.SearchUpdate{Type: "bestmove", BestMove: best.String()})
}

func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			depth = n
		}
	}

	start := time.Now()
	nodes := u.position.Perft(depth)
	elapsed := time.Since(start)

	fmt.Fprintf(u.out, "Nodes: %d\n", nodes)
	fmt.Fprintf(u.out, "Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Fprintf(u.out, "NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}

// handleBench runs a fixed-depth search over a small position suite and
// reports total nodes, a quick health check for the search.
func (u *UCI) handleBench(args []string) {
	depth := 8
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			depth = n
		}
	}

	fens := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}

	start := time.Now()
	var nodes uint64
	for _, fen := range fens {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			continue
		}
		u.pool.StartSearch(pos, nil, engine.Limits{Depth: depth})
		u.pool.WaitSearchFinished()
		nodes += u.pool.NodesSearched()
	}
	elapsed := time.Since(start)

	fmt.Fprintf(u.out, "info string bench nodes %d time %d nps %.0f\n",
		nodes, elapsed.Milliseconds(), float64(nodes)/elapsed.Seconds())
}

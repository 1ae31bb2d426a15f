package match

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/orangebot/orangebot/internal/domain"
	"github.com/orangebot/orangebot/internal/metrics"
)

// Defaults are the match settings restored on every warmup
type Defaults struct {
	Record    bool
	Knife     bool
	OT        bool
	FullMap   bool
	PauseTime int
	ReadyTime int
}

// Console is the remote console the server is controlled through. Exec is
// only used for synchronous queries (the status probe); everything else
// goes through the command queue and is drained by the manager.
type Console interface {
	Exec(command string) (string, error)
}

// Notifier receives match lifecycle events for broadcast
type Notifier func(event domain.Event)

// MapResult is one finished map, handed to the result sink on game over
type MapResult struct {
	ServerAddr string
	SeriesID   string
	Map        string
	TeamT      string
	TeamCT     string
	TScore     int
	CTScore    int
	DemoName   string
	FinishedAt time.Time
}

// ResultSink persists finished map results
type ResultSink interface {
	SaveMapResult(result MapResult)
}

// Options configures a Server
type Options struct {
	Addr     string
	Console  Console
	Admins   []string
	Defaults Defaults
	Configs  ConfigFiles
	Clock    Clock      // nil uses the wall clock
	Notify   Notifier   // nil drops events
	Results  ResultSink // nil disables result history
}

// Server drives the match state machine for one game server. Inbound log
// events and timer callbacks mutate state under one mutex; outbound control
// commands are appended to a FIFO queue the manager drains one per tick.
type Server struct {
	mu sync.Mutex

	addr     string
	console  Console
	admins   map[string]struct{}
	defaults Defaults
	configs  ConfigFiles
	clock    Clock
	notify   Notifier
	results  ResultSink
	log      *logrus.Entry

	state    *State
	queue    []string
	seriesID string

	// At most one armed timer per category; arming cancels the previous.
	readyTimer Timer
	pauseTimer Timer
}

var statusMapRegex = regexp.MustCompile(`map\s+:\s+(\S+)`)

// NewServer creates a match controller for one game server
func NewServer(opts Options) *Server {
	admins := make(map[string]struct{}, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[domain.SteamID64(id)] = struct{}{}
	}

	clock := opts.Clock
	if clock == nil {
		clock = NewClock()
	}
	notify := opts.Notify
	if notify == nil {
		notify = func(domain.Event) {}
	}

	return &Server{
		addr:     opts.Addr,
		console:  opts.Console,
		admins:   admins,
		defaults: opts.Defaults,
		configs:  opts.Configs,
		clock:    clock,
		notify:   notify,
		results:  opts.Results,
		log: logrus.WithFields(logrus.Fields{
			"component": "match",
			"server":    opts.Addr,
		}),
		state: newState(opts.Defaults),
	}
}

// Addr returns the host:port the server is registered under
func (s *Server) Addr() string {
	return s.addr
}

// Attach whitelists the bot's socket on the game server, probes the current
// map and greets the players. Called once when the server is registered.
func (s *Server) Attach(socketIP string, socketPort int) {
	s.mu.Lock()
	s.enqueue(fmt.Sprintf("sv_rcon_whitelist_address %s;logaddress_add %s:%d;log on", socketIP, socketIP, socketPort))
	s.mu.Unlock()

	s.probeGameStatus()

	s.clock.AfterFunc(time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.enqueue(cmdWelcome)
	})
}

// Touch records log activity for idle tracking
func (s *Server) Touch() {
	s.mu.Lock()
	s.state.LastLog = time.Now()
	s.mu.Unlock()
}

// PopCommand removes and returns the oldest queued command
func (s *Server) PopCommand() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return "", false
	}
	cmd := s.queue[0]
	s.queue = s.queue[1:]
	return cmd, true
}

// Console returns the RCON client commands are executed through
func (s *Server) Console() Console {
	return s.console
}

// --- Log event handlers ---

// OnTeamJoin creates or updates the roster entry for a player switching
// sides. The clan tag is never touched here.
func (s *Server) OnTeamJoin(steamID string, newTeam domain.Team, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.state.GetPlayer(steamID)
	if player == nil {
		if steamID != "BOT" {
			s.state.AddPlayer(steamID, newTeam, name)
		}
		return
	}
	player.Team = newTeam
	player.Name = name
}

// OnClanTag records a player's self-reported clan tag. An empty tag clears it.
func (s *Server) OnClanTag(steamID string, team domain.Team, name, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.state.GetPlayer(steamID)
	if player == nil {
		if steamID != "BOT" {
			p := s.state.AddPlayer(steamID, team, name)
			p.ClanTag = tag
			p.HasTag = tag != ""
		}
		return
	}
	if tag == "" {
		player.ClanTag = ""
		player.HasTag = false
	} else {
		player.ClanTag = tag
		player.HasTag = true
	}
}

// OnDisconnect drops a player from the roster
func (s *Server) OnDisconnect(steamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DeletePlayer(steamID)
}

// OnMapLoading wipes the roster; players re-announce after the load
func (s *Server) OnMapLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ClearPlayers()
}

// OnMapLoaded starts the warmup cycle for the freshly loaded map
func (s *Server) OnMapLoaded(mapName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newmap(mapName, 10*time.Second)
}

// OnRoundStart clears freeze time and any lingering pause flag
func (s *Server) OnRoundStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Freeze = false
	s.state.Paused = false
	s.enqueue(cmdRoundStarted)
}

// OnRoundEnd records the score and resolves the knife decider
func (s *Server) OnRoundEnd(tScore, ctScore int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tLabel := s.teamLabel(domain.TeamTerrorist)
	ctLabel := s.teamLabel(domain.TeamCT)
	s.state.Score[s.state.Map] = map[string]int{
		tLabel:  tScore,
		ctLabel: ctScore,
	}
	s.stats(false)

	if tScore+ctScore == 1 && s.state.Knife {
		winner := domain.TeamCT
		if tScore == 1 {
			winner = domain.TeamTerrorist
		}
		s.state.KnifeWinner = winner
		s.state.Knife = false
		s.enqueueConfig(s.configs.Match)
		s.enqueue(fmt.Sprintf(cmdKnifeWon, winner.DisplayName()))
		s.emit(domain.EventKnifeDecided, domain.KnifeDecidedEvent{Winner: winner})
	} else if s.state.Paused {
		s.matchPause()
	}
	s.state.Freeze = true

	s.emit(domain.EventRoundEnd, domain.RoundEndEvent{
		Map:     s.state.Map,
		TLabel:  tLabel,
		CTLabel: ctLabel,
		TScore:  tScore,
		CTScore: ctScore,
	})
}

// OnGameOver runs the end-of-map sequence
func (s *Server) OnGameOver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapend()
}

// OnChatCommand dispatches a chat command. The returned bool is true when an
// admin asked the bot to let go of this server.
func (s *Server) OnChatCommand(playerID, steamID string, team domain.Team, cmdline string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	// pid 0 is the server console itself, which is always trusted
	isAdmin := playerID == "0" || s.isAdmin(steamID)

	switch cmd {
	case "restore", "replay":
		if isAdmin && len(args) > 0 {
			s.restore(args[0])
		}
	case "status", "stats", "score", "scores":
		s.stats(true)
	case "restart", "reset", "warmup":
		if isAdmin {
			s.warmup()
		}
	case "maps", "map", "start", "match", "startmatch":
		if isAdmin || !s.state.Live {
			s.start(args)
		}
	case "force":
		if isAdmin {
			s.ready(team, true)
		}
	case "resume", "ready", "rdy", "gaben", "r", "unpause":
		s.ready(team, false)
	case "pause":
		s.pause()
	case "stay":
		s.stay(team)
	case "swap", "switch":
		s.swap(team)
	case "knife":
		if isAdmin {
			s.knife()
		}
	case "record":
		if isAdmin {
			s.record()
		}
	case "ot", "overtime":
		if isAdmin {
			s.overtime()
		}
	case "fullmap":
		if isAdmin {
			s.fullmap()
		}
	case "settings":
		s.settings()
	case "disconnect", "quit", "leave":
		if isAdmin {
			s.quit()
			return true
		}
	case "say":
		if isAdmin {
			s.say(strings.Join(args, " "))
		}
	case "debug":
		s.debug()
	case "cmd":
		if isAdmin && len(args) > 0 {
			s.enqueue(strings.Join(args, " "))
		}
	default:
		// Unknown tokens are dropped silently; chat is full of them.
	}
	return false
}

// --- State machine internals (callers hold the lock) ---

// enqueue splits a possibly ";"-joined command string and appends the parts
// to the outbound queue in order.
func (s *Server) enqueue(cmds string) {
	if cmds == "" {
		return
	}
	for _, cmd := range strings.Split(cmds, ";") {
		s.queue = append(s.queue, strings.TrimSpace(cmd))
	}
}

func (s *Server) enqueueConfig(path string) {
	cmds, err := loadConfigFile(path)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("could not load game config")
		return
	}
	s.enqueue(cmds)
}

func (s *Server) emit(eventType string, data interface{}) {
	s.notify(domain.Event{
		Type:      eventType,
		Server:    s.addr,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func (s *Server) isAdmin(steamID string) bool {
	_, ok := s.admins[domain.SteamID64(steamID)]
	return ok
}

// teamLabel derives a display label for a side from the clan tags of its
// players. The Terrorist label is always resolved first; the CT default and
// collision suffix depend on it.
func (s *Server) teamLabel(team domain.Team) string {
	if !team.Playing() {
		return string(team)
	}

	label := "mix1"
	var tLabel string
	if team == domain.TeamCT {
		tLabel = s.teamLabel(domain.TeamTerrorist)
		if tLabel == "mix1" {
			label = "mix2"
		}
	}

	counts := make(map[string]int)
	for _, player := range s.state.Players {
		if player.Team == team && player.HasTag {
			counts[player.ClanTag]++
		}
	}

	// Sorted iteration keeps ties deterministic: equal counts keep the
	// running default.
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	max := 0
	for _, tag := range tags {
		if counts[tag] > max {
			max = counts[tag]
			label = tag
		}
	}

	label = domain.CleanString(label)
	if team == domain.TeamCT && label == tLabel {
		label += "2"
	}
	return label
}

// stats reports the series scoreline, either to chat or to the GOTV overlay
func (s *Server) stats(toChat bool) {
	team1 := s.teamLabel(domain.TeamTerrorist)
	team2 := s.teamLabel(domain.TeamCT)

	var parts []string
	wins1, wins2 := 0, 0
	for _, m := range s.state.Maps {
		score1, ok1 := s.state.Score[m][team1]
		score2, ok2 := s.state.Score[m][team2]

		display1, display2 := "x", "x"
		if ok1 {
			display1 = strconv.Itoa(score1)
		}
		if ok2 {
			display2 = strconv.Itoa(score2)
		}
		parts = append(parts, fmt.Sprintf("%s %s-%s", m, display1, display2))

		// Completed maps count toward the series score
		if m != s.state.Map && ok1 && ok2 {
			if score1 > score2 {
				wins1++
			} else if score2 > score1 {
				wins2++
			}
		}
	}

	if toChat {
		chat := "\x10" + team1 + " [\x06" + strings.Join(parts, ", ") + "\x10] " + team2
		s.enqueue(fmt.Sprintf(cmdSay, chat))
		return
	}

	index := 0
	for i, m := range s.state.Maps {
		if m == s.state.Map {
			index = i
			break
		}
	}
	s.enqueue(fmt.Sprintf(cmdGotvOverlay, index+1, len(s.state.Maps), wins1, wins2))
}

// start begins a match series. With an explicit rotation the server is moved
// to the first map; without one the current map is played indefinitely.
func (s *Server) start(maps []string) {
	s.state.Score = make(map[string]map[string]int)
	s.seriesID = uuid.NewString()

	if len(maps) > 0 {
		s.state.Maps = maps
		s.state.MapIndex = 0
		if s.state.Map != maps[0] {
			s.enqueue(fmt.Sprintf(cmdChangeLevel, maps[0]))
		} else {
			s.newmap(maps[0], 0)
		}
		return
	}

	s.state.Maps = nil
	s.newmap(s.state.Map, 0)
	s.clock.AfterFunc(time.Second, s.probeGameStatus)
}

// newmap registers the current map and schedules the warmup cycle. The map
// load itself grants a grace period before warmup; start passes zero delay.
func (s *Server) newmap(mapName string, delay time.Duration) {
	found := false
	for _, m := range s.state.Maps {
		if m == mapName {
			found = true
			break
		}
	}
	if !found {
		s.state.Maps = []string{mapName}
	}
	s.state.Map = mapName

	s.emit(domain.EventMapStart, domain.MapStartEvent{Map: mapName, Rotation: s.state.Maps})

	run := func() {
		s.stats(false)
		s.warmup()
		s.startReadyTimer()
	}
	if delay <= 0 {
		run()
		return
	}
	s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		run()
	})
}

// warmup resets the instance to the configured pre-match state
func (s *Server) warmup() {
	s.state.resetReady()
	s.state.resetUnpause()
	if s.state.Live {
		metrics.LiveMatches.Dec()
	}
	s.state.Live = false
	s.state.Paused = false
	s.state.Freeze = false
	s.state.KnifeWinner = ""
	s.state.Knife = s.defaults.Knife
	s.state.Record = s.defaults.Record
	s.state.OT = s.defaults.OT
	s.state.FullMap = s.defaults.FullMap

	s.enqueueConfig(s.configs.Warmup)
	if s.state.OT {
		s.enqueueConfig(s.configs.Overtime)
	}
	if s.state.FullMap {
		s.enqueueConfig(s.configs.FullMap)
	}
	s.enqueue(cmdWarmup)
}

// ready is both "ready to start" (pre-live) and "ready to unpause" (paused).
// With both=true it forces both teams at once.
func (s *Server) ready(team domain.Team, both bool) {
	if s.state.Live && s.state.Paused {
		if both {
			s.state.Unpause[domain.TeamTerrorist] = true
			s.state.Unpause[domain.TeamCT] = true
		} else if team.Playing() {
			s.state.Unpause[team] = true
		}

		tReady := s.state.Unpause[domain.TeamTerrorist]
		ctReady := s.state.Unpause[domain.TeamCT]
		if tReady != ctReady {
			s.announceWaiting(tReady)
		} else if tReady && ctReady {
			s.cancelPauseTimer()
			s.enqueue(cmdMatchUnpause)
			s.state.Paused = false
			s.state.resetUnpause()
			s.emit(domain.EventMatchResumed, nil)
		}
		return
	}

	if s.state.Live {
		return
	}

	if both {
		s.state.Ready[domain.TeamTerrorist] = true
		s.state.Ready[domain.TeamCT] = true
	} else if team.Playing() {
		s.state.Ready[team] = true
	}

	tReady := s.state.Ready[domain.TeamTerrorist]
	ctReady := s.state.Ready[domain.TeamCT]
	if tReady != ctReady {
		s.announceWaiting(tReady)
		return
	}
	if !tReady || !ctReady {
		return
	}

	s.state.Live = true
	metrics.LiveMatches.Inc()
	s.cancelReadyTimer()

	if s.state.Knife {
		s.enqueueConfig(s.configs.Knife)
		s.enqueue(cmdKnifeStarting)
		s.clock.AfterFunc(9*time.Second, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.enqueue(cmdKnifeStarted)
		})
	} else {
		s.enqueueConfig(s.configs.Match)
		s.startRecord()
		s.enqueue(cmdMatchStarting)
		s.lo3()
		s.emit(domain.EventMatchLive, nil)
	}

	s.countdown(!s.state.Knife)
}

func (s *Server) announceWaiting(terroristsReady bool) {
	readyTeam, waitingTeam := domain.TeamTerrorist, domain.TeamCT
	if !terroristsReady {
		readyTeam, waitingTeam = waitingTeam, readyTeam
	}
	s.enqueue(fmt.Sprintf(cmdTeamReady, readyTeam.DisplayName(), waitingTeam.DisplayName()))
}

// countdown ticks 4..1 into chat; withLive attaches the LIVE shout at +5s
// (the knife path announces its own start separately).
func (s *Server) countdown(withLive bool) {
	ticks := []string{"say \x054...", "say \x063...", "say \x102...", "say \x0f1..."}
	for i, tick := range ticks {
		cmd := tick
		s.clock.AfterFunc(time.Duration(i+1)*time.Second, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.enqueue(cmd)
		})
	}
	if withLive {
		s.clock.AfterFunc(5*time.Second, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.enqueue(cmdLive)
		})
	}
}

// lo3 is the traditional three-restart live sequence; the relative timing
// matters to the game server and is not cosmetic.
func (s *Server) lo3() {
	s.enqueue(cmdMatchLiveOn3)
	s.enqueue("mp_restartgame 1")
	s.clock.AfterFunc(time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.enqueue("mp_restartgame 1")
	})
	s.clock.AfterFunc(2*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.enqueue("mp_restartgame 3")
	})
	s.clock.AfterFunc(6*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.enqueue(cmdMatchIsLive)
	})
}

func (s *Server) pause() {
	if !s.state.Live {
		return
	}
	if s.state.Paused {
		s.enqueue(cmdPauseAlready)
		return
	}

	s.enqueue(cmdPauseEnabled)
	s.state.Paused = true
	s.state.resetUnpause()
	s.emit(domain.EventMatchPaused, nil)

	if s.state.Freeze {
		s.matchPause()
	}
}

// matchPause announces the pause and arms the auto-timeout. Re-invocation
// (another freeze-time round end while paused) re-arms the timer.
func (s *Server) matchPause() {
	s.enqueue(cmdMatchPaused)

	if s.state.PauseTime <= 0 {
		return
	}

	s.cancelPauseTimer()
	limit := s.state.PauseTime
	s.pauseTimer = s.clock.AfterFunc(time.Duration(limit-20)*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.enqueue(cmdPauseTimeout)
		s.pauseTimer = s.clock.AfterFunc(20*time.Second, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.ready(domain.TeamUnassigned, true)
		})
	})
	s.enqueue(fmt.Sprintf(cmdPauseTime, limit))
}

func (s *Server) knife() {
	if s.state.Live {
		return
	}
	if !s.state.Knife {
		s.state.Knife = true
		s.enqueue(cmdWarmupKnife)
		s.startReadyTimer()
	} else {
		s.state.Knife = false
		s.enqueue(cmdKnifeDisabled)
		s.cancelReadyTimer()
	}
}

func (s *Server) record() {
	if s.state.Live {
		return
	}
	if s.state.Record {
		s.state.Record = false
		s.enqueue(cmdDemoRecDisabled)
	} else {
		s.state.Record = true
		s.enqueue(cmdDemoRecEnabled)
	}
}

func (s *Server) overtime() {
	if s.state.OT {
		s.state.OT = false
		s.enqueue(cmdOvertimeDisabled)
		s.enqueue("mp_overtime_enable 0")
	} else {
		s.state.OT = true
		s.enqueue(cmdOvertimeEnabled)
		s.enqueueConfig(s.configs.Overtime)
	}
}

func (s *Server) fullmap() {
	if s.state.FullMap {
		s.state.FullMap = false
		s.enqueue(cmdFullMapDisabled)
		s.enqueue("mp_match_can_clinch 1")
	} else {
		s.state.FullMap = true
		s.enqueue(cmdFullMapEnabled)
		s.enqueueConfig(s.configs.FullMap)
	}
}

func (s *Server) settings() {
	s.enqueue(cmdSettings)
	s.enqueue(fmt.Sprintf(cmdSettingsKnife, s.state.Knife))
	s.enqueue(fmt.Sprintf(cmdSettingsRecording, s.state.Record))
	s.enqueue(fmt.Sprintf(cmdSettingsOvertime, s.state.OT))
	s.enqueue(fmt.Sprintf(cmdSettingsFullMap, s.state.FullMap))
	s.enqueue(fmt.Sprintf(cmdSettingsMaps, strings.Join(s.state.Maps, ", ")))
}

func (s *Server) stay(team domain.Team) {
	if team != s.state.KnifeWinner || team == "" {
		return
	}
	s.enqueue(cmdKnifeStay)
	s.state.KnifeWinner = ""
	s.lo3()
	s.startRecord()
	s.emit(domain.EventMatchLive, nil)
}

func (s *Server) swap(team domain.Team) {
	if team != s.state.KnifeWinner || team == "" {
		return
	}
	s.enqueue(cmdKnifeSwap)
	s.state.KnifeWinner = ""
	s.lo3()
	s.startRecord()
	s.emit(domain.EventMatchLive, nil)
}

// restore reloads a round backup and counts back in
func (s *Server) restore(round string) {
	roundNum, err := strconv.Atoi(round)
	if err != nil {
		return
	}
	backup := fmt.Sprintf("backup_round%02d.txt", roundNum)
	s.enqueue(fmt.Sprintf(cmdRestoreRound, backup, roundNum))
	s.countdown(false)
	s.clock.AfterFunc(5*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.enqueue(cmdLive + ";mp_unpause_match")
	})
}

func (s *Server) startRecord() {
	if !s.state.Record {
		return
	}
	stamp := time.Now().UTC().Format("2006-01-02_15-04-05")
	demoName := fmt.Sprintf("%s_%s_%s-%s.dem",
		stamp,
		s.state.Map,
		domain.CleanString(s.teamLabel(domain.TeamTerrorist)),
		domain.CleanString(s.teamLabel(domain.TeamCT)),
	)
	s.state.DemoName = demoName
	s.enqueue("tv_stoprecord; tv_record " + demoName)
	s.enqueue(fmt.Sprintf(cmdDemoRec, demoName))
}

// mapend advances the rotation after game over
func (s *Server) mapend() {
	s.enqueue(cmdMapFinished)
	s.saveMapResult()
	s.state.MapIndex++

	if s.state.Record {
		s.enqueue("tv_stoprecord")
		s.enqueue(fmt.Sprintf(cmdDemoFinished, s.state.DemoName))
	}

	if s.state.MapIndex == len(s.state.Maps) {
		s.enqueue(cmdSeriesFinished)
		s.state.MapIndex = 0
		s.emit(domain.EventSeriesEnd, nil)
		return
	}

	if len(s.state.Maps) > s.state.MapIndex {
		next := s.state.Maps[s.state.MapIndex]
		s.enqueue(fmt.Sprintf(cmdMapChange, next))
		s.emit(domain.EventMapEnd, domain.MapEndEvent{
			Map:      s.state.Map,
			NextMap:  next,
			DemoName: s.state.DemoName,
		})
		s.clock.AfterFunc(20*time.Second, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.enqueue(fmt.Sprintf(cmdChangeLevel, next))
		})
	}
}

func (s *Server) saveMapResult() {
	if s.results == nil {
		return
	}
	tLabel := s.teamLabel(domain.TeamTerrorist)
	ctLabel := s.teamLabel(domain.TeamCT)
	scores := s.state.Score[s.state.Map]
	s.results.SaveMapResult(MapResult{
		ServerAddr: s.addr,
		SeriesID:   s.seriesID,
		Map:        s.state.Map,
		TeamT:      tLabel,
		TeamCT:     ctLabel,
		TScore:     scores[tLabel],
		CTScore:    scores[ctLabel],
		DemoName:   s.state.DemoName,
		FinishedAt: time.Now().UTC(),
	})
}

// startReadyTimer arms the warmup auto-start. A warning fires 20 seconds
// before the limit, then both teams are force-readied.
func (s *Server) startReadyTimer() {
	if s.state.ReadyTime <= 0 {
		return
	}

	s.cancelReadyTimer()
	s.enqueue(fmt.Sprintf(cmdWarmupTime, s.state.ReadyTime))
	s.readyTimer = s.clock.AfterFunc(time.Duration(s.state.ReadyTime-20)*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.enqueue(cmdWarmupTimeout)
		s.readyTimer = s.clock.AfterFunc(20*time.Second, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.ready(domain.TeamUnassigned, true)
		})
	})
}

func (s *Server) cancelReadyTimer() {
	if s.readyTimer != nil {
		s.readyTimer.Stop()
		s.readyTimer = nil
	}
}

func (s *Server) cancelPauseTimer() {
	if s.pauseTimer != nil {
		s.pauseTimer.Stop()
		s.pauseTimer = nil
	}
}

func (s *Server) say(msg string) {
	s.enqueue(fmt.Sprintf(cmdSay, domain.CleanChatString(msg)))
}

func (s *Server) debug() {
	s.enqueue(fmt.Sprintf(
		"say \x10live: %t paused: %t freeze: %t knife: %t knifewinner: %s ready: T:%t CT:%t unpause: T:%t CT:%t",
		s.state.Live, s.state.Paused, s.state.Freeze, s.state.Knife,
		s.state.KnifeWinner,
		s.state.Ready[domain.TeamTerrorist], s.state.Ready[domain.TeamCT],
		s.state.Unpause[domain.TeamTerrorist], s.state.Unpause[domain.TeamCT],
	))
	s.stats(true)
}

func (s *Server) quit() {
	s.enqueue(cmdGoodbye)
}

// Status is a point-in-time copy of the match state, safe to serialize
type Status struct {
	Addr        string                    `json:"addr"`
	SeriesID    string                    `json:"series_id,omitempty"`
	Map         string                    `json:"map"`
	Maps        []string                  `json:"maps,omitempty"`
	MapIndex    int                       `json:"map_index"`
	Live        bool                      `json:"live"`
	Paused      bool                      `json:"paused"`
	Freeze      bool                      `json:"freeze"`
	Knife       bool                      `json:"knife"`
	Record      bool                      `json:"record"`
	OT          bool                      `json:"overtime"`
	FullMap     bool                      `json:"full_map"`
	KnifeWinner string                    `json:"knife_winner,omitempty"`
	DemoName    string                    `json:"demo_name,omitempty"`
	Score       map[string]map[string]int `json:"score,omitempty"`
	Players     []domain.Player           `json:"players"`
	QueueLen    int                       `json:"queue_len"`
	LastLog     time.Time                 `json:"last_log"`
}

// Snapshot copies the current state for external consumers
func (s *Server) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	score := make(map[string]map[string]int, len(s.state.Score))
	for m, teams := range s.state.Score {
		inner := make(map[string]int, len(teams))
		for label, v := range teams {
			inner[label] = v
		}
		score[m] = inner
	}

	players := make([]domain.Player, 0, len(s.state.Players))
	for _, p := range s.state.Players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].SteamID < players[j].SteamID })

	return Status{
		Addr:        s.addr,
		SeriesID:    s.seriesID,
		Map:         s.state.Map,
		Maps:        append([]string(nil), s.state.Maps...),
		MapIndex:    s.state.MapIndex,
		Live:        s.state.Live,
		Paused:      s.state.Paused,
		Freeze:      s.state.Freeze,
		Knife:       s.state.Knife,
		Record:      s.state.Record,
		OT:          s.state.OT,
		FullMap:     s.state.FullMap,
		KnifeWinner: string(s.state.KnifeWinner),
		DemoName:    s.state.DemoName,
		Score:       score,
		Players:     players,
		QueueLen:    len(s.queue),
		LastLog:     s.state.LastLog,
	}
}

// probeGameStatus asks the server for its current map via RCON. Runs async
// so handlers never block on the network while holding the state lock.
func (s *Server) probeGameStatus() {
	go func() {
		resp, err := s.console.Exec("status")
		if err != nil {
			s.log.WithField("error", err.Error()).Warn("status probe failed")
			return
		}
		match := statusMapRegex.FindStringSubmatch(resp)
		if match == nil {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.state.Map = match[1]
		s.stats(false)
	}()
}

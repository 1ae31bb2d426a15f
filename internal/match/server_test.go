package match

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orangebot/orangebot/internal/domain"
)

// fakeClock is a manually advanced clock so timer arming, cancelation and
// re-arming can be asserted without real sleeps.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Duration
	fn       func()
	fired    bool
	stopped  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward, firing due timers in deadline order.
// Callbacks run without the clock lock held so they can arm new timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.deadline > target {
				continue
			}
			if next == nil || t.deadline < next.deadline {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.deadline
		next.fired = true
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

type fakeConsole struct {
	mu       sync.Mutex
	execed   []string
	response string
}

func (c *fakeConsole) Exec(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execed = append(c.execed, cmd)
	return c.response, nil
}

type fakeSink struct {
	mu      sync.Mutex
	results []MapResult
}

func (s *fakeSink) SaveMapResult(r MapResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

const testAdmin = "STEAM_1:0:1"

func writeConfigFiles(t *testing.T) ConfigFiles {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	return ConfigFiles{
		Warmup:   write("warmup.cfg", "mp_warmup_start\nmp_warmuptime 3600"),
		Match:    write("match.cfg", "mp_maxrounds 30\nmp_warmup_end"),
		Knife:    write("knife.cfg", "mp_give_player_c4 0\nmp_warmup_end"),
		Overtime: write("overtime.cfg", "mp_overtime_enable 1"),
		FullMap:  write("fullmap.cfg", "mp_match_can_clinch 0"),
	}
}

func newTestServer(t *testing.T, defaults Defaults) (*Server, *fakeClock, *fakeSink) {
	t.Helper()
	clock := newFakeClock()
	sink := &fakeSink{}
	srv := NewServer(Options{
		Addr:     "10.0.0.1:27015",
		Console:  &fakeConsole{response: "hostname: test\nmap     : de_dust2\n"},
		Admins:   []string{testAdmin},
		Defaults: defaults,
		Configs:  writeConfigFiles(t),
		Clock:    clock,
		Results:  sink,
	})
	return srv, clock, sink
}

func drain(s *Server) []string {
	var cmds []string
	for {
		cmd, ok := s.PopCommand()
		if !ok {
			return cmds
		}
		cmds = append(cmds, cmd)
	}
}

func joinPlayer(s *Server, steamID string, team domain.Team, name, tag string) {
	s.OnTeamJoin(steamID, team, name)
	if tag != "" {
		s.OnClanTag(steamID, team, name, tag)
	}
}

// goLive readies both teams and drains the resulting commands
func goLive(s *Server, clock *fakeClock) {
	s.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "ready")
	s.OnChatCommand("3", "STEAM_1:1:100", domain.TeamCT, "ready")
	clock.Advance(10 * time.Second)
	drain(s)
}

func TestTeamJoinRoster(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})

	srv.OnTeamJoin("STEAM_1:0:5", domain.TeamTerrorist, "alice")
	srv.OnClanTag("STEAM_1:0:5", domain.TeamTerrorist, "alice", "NAVI")
	status := srv.Snapshot()
	require.Len(t, status.Players, 1)
	assert.Equal(t, "NAVI", status.Players[0].ClanTag)

	// A side switch keeps the clan tag
	srv.OnTeamJoin("STEAM_1:0:5", domain.TeamCT, "alice")
	status = srv.Snapshot()
	require.Len(t, status.Players, 1)
	assert.Equal(t, domain.TeamCT, status.Players[0].Team)
	assert.Equal(t, "NAVI", status.Players[0].ClanTag)

	// Disconnect removes; a rejoin starts from scratch
	srv.OnDisconnect("STEAM_1:0:5")
	assert.Empty(t, srv.Snapshot().Players)
	srv.OnTeamJoin("STEAM_1:0:5", domain.TeamTerrorist, "alice")
	status = srv.Snapshot()
	require.Len(t, status.Players, 1)
	assert.Empty(t, status.Players[0].ClanTag)

	// Bots never enter the roster
	srv.OnTeamJoin("BOT", domain.TeamCT, "Cliffe")
	assert.Len(t, srv.Snapshot().Players, 1)
}

func TestMapLoadingWipesRoster(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})
	joinPlayer(srv, "STEAM_1:0:5", domain.TeamTerrorist, "alice", "NAVI")
	joinPlayer(srv, "STEAM_1:1:6", domain.TeamCT, "bob", "")
	require.Len(t, srv.Snapshot().Players, 2)

	srv.OnMapLoading()
	assert.Empty(t, srv.Snapshot().Players)
}

func TestClanTagCleared(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})
	joinPlayer(srv, "STEAM_1:0:5", domain.TeamTerrorist, "alice", "NAVI")

	srv.OnClanTag("STEAM_1:0:5", domain.TeamTerrorist, "alice", "")
	srv.mu.Lock()
	player := srv.state.GetPlayer("STEAM_1:0:5")
	srv.mu.Unlock()
	require.NotNil(t, player)
	assert.Empty(t, player.ClanTag)
	assert.False(t, player.HasTag)
}

func TestTeamLabels(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})

	srv.mu.Lock()
	assert.Equal(t, "mix1", srv.teamLabel(domain.TeamTerrorist))
	assert.Equal(t, "mix2", srv.teamLabel(domain.TeamCT))
	srv.mu.Unlock()

	// Majority tag wins
	joinPlayer(srv, "STEAM_1:0:1", domain.TeamTerrorist, "a", "NAVI")
	joinPlayer(srv, "STEAM_1:0:2", domain.TeamTerrorist, "b", "NAVI")
	joinPlayer(srv, "STEAM_1:0:3", domain.TeamTerrorist, "c", "solo")
	srv.mu.Lock()
	assert.Equal(t, "NAVI", srv.teamLabel(domain.TeamTerrorist))
	assert.Equal(t, "mix1", srv.teamLabel(domain.TeamCT))
	srv.mu.Unlock()

	// A tie is not a majority; the default stays
	joinPlayer(srv, "STEAM_1:0:4", domain.TeamCT, "d", "AAA")
	joinPlayer(srv, "STEAM_1:0:5", domain.TeamCT, "e", "BBB")
	srv.mu.Lock()
	label := srv.teamLabel(domain.TeamCT)
	srv.mu.Unlock()
	assert.Equal(t, "mix1", label)

	// Same tag on both sides: CT gets a suffix
	joinPlayer(srv, "STEAM_1:0:6", domain.TeamCT, "f", "NAVI")
	joinPlayer(srv, "STEAM_1:0:7", domain.TeamCT, "g", "NAVI")
	srv.mu.Lock()
	assert.Equal(t, "NAVI", srv.teamLabel(domain.TeamTerrorist))
	assert.Equal(t, "NAVI2", srv.teamLabel(domain.TeamCT))
	srv.mu.Unlock()
}

func TestTeamLabelSanitized(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})
	joinPlayer(srv, "STEAM_1:0:1", domain.TeamTerrorist, "a", `d;rty"tag`)
	srv.mu.Lock()
	label := srv.teamLabel(domain.TeamTerrorist)
	srv.mu.Unlock()
	assert.Equal(t, "drtytag", label)
}

func TestReadySequence(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{Record: false})

	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "ready")
	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "Terrorists")
	assert.Contains(t, cmds, "waiting for")
	assert.False(t, srv.Snapshot().Live)

	srv.OnChatCommand("3", "STEAM_1:1:100", domain.TeamCT, "ready")
	require.True(t, srv.Snapshot().Live)
	cmds = strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "mp_maxrounds 30")
	assert.Contains(t, cmds, "mp_restartgame 1")

	// Countdown and LIVE roll out over the next five seconds
	clock.Advance(5 * time.Second)
	cmds = strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "4...")
	assert.Contains(t, cmds, "1...")
	assert.Contains(t, cmds, "LIVE")

	// Spectators cannot ready and live readiness is inert
	srv.OnChatCommand("4", "STEAM_1:0:200", domain.TeamSpectator, "ready")
	assert.True(t, srv.Snapshot().Live)
}

func TestForceStartIsAdminOnly(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})

	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "force")
	assert.False(t, srv.Snapshot().Live)

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "force")
	assert.True(t, srv.Snapshot().Live)
	drain(srv)

	// Forcing an already live match changes nothing
	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "force")
	assert.True(t, srv.Snapshot().Live)
	assert.Empty(t, drain(srv))
}

func TestKnifeRound(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{Knife: true})

	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "ready")
	srv.OnChatCommand("3", "STEAM_1:1:100", domain.TeamCT, "ready")
	require.True(t, srv.Snapshot().Live)
	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "mp_give_player_c4 0")
	assert.Contains(t, cmds, "starting knife round")

	clock.Advance(9 * time.Second)
	cmds = strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "Knife round started")
	assert.NotContains(t, cmds, "say \x02LIVE")

	// First round decides the knife
	srv.OnRoundEnd(1, 0)
	status := srv.Snapshot()
	assert.Equal(t, string(domain.TeamTerrorist), status.KnifeWinner)
	assert.False(t, status.Knife)
	cmds = strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "won the knife round")
	assert.Contains(t, cmds, "mp_maxrounds 30")

	// Only the winner decides
	srv.OnChatCommand("3", "STEAM_1:1:100", domain.TeamCT, "stay")
	assert.Equal(t, string(domain.TeamTerrorist), srv.Snapshot().KnifeWinner)

	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "swap")
	status = srv.Snapshot()
	assert.Empty(t, status.KnifeWinner)
	cmds = strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "swap")
	assert.Contains(t, cmds, "mp_restartgame 1")

	// A second decision attempt is inert
	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "stay")
	assert.NotContains(t, strings.Join(drain(srv), "\n"), "mp_swapteams")
}

func TestKnifeToggle(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "knife")
	assert.True(t, srv.Snapshot().Knife)
	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "knife")
	assert.False(t, srv.Snapshot().Knife)

	// Non-admins cannot toggle
	srv.OnChatCommand("3", "STEAM_1:0:100", domain.TeamTerrorist, "knife")
	assert.False(t, srv.Snapshot().Knife)

	// The server console always can
	srv.OnChatCommand("0", "Console", domain.TeamConsole, "knife")
	assert.True(t, srv.Snapshot().Knife)
}

func TestPauseTimerRearm(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{PauseTime: 60})
	goLive(srv, clock)

	// Pause requested mid-round: armed only once freeze time is reached
	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "pause")
	require.True(t, srv.Snapshot().Paused)
	drain(srv)

	srv.OnRoundEnd(3, 2)
	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "60 seconds")

	// Another freeze-time entry while still paused re-arms the timer;
	// the replaced one must never fire.
	clock.Advance(30 * time.Second)
	srv.OnRoundEnd(3, 3)
	drain(srv)

	clock.Advance(30 * time.Second)
	assert.NotContains(t, strings.Join(drain(srv), "\n"), "automatically")

	clock.Advance(10 * time.Second)
	cmds = strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "20 seconds")

	clock.Advance(20 * time.Second)
	status := srv.Snapshot()
	assert.False(t, status.Paused)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "mp_unpause_match")
}

func TestPauseUnlimited(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{PauseTime: -1})
	goLive(srv, clock)

	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "pause")
	srv.OnRoundEnd(1, 0)
	drain(srv)

	// No auto-timeout ever fires
	clock.Advance(time.Hour)
	assert.Empty(t, drain(srv))
	assert.True(t, srv.Snapshot().Paused)

	// Both teams must agree to resume
	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "ready")
	assert.True(t, srv.Snapshot().Paused)
	srv.OnChatCommand("3", "STEAM_1:1:100", domain.TeamCT, "ready")
	assert.False(t, srv.Snapshot().Paused)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "mp_unpause_match")
}

func TestPauseWhileAlreadyPaused(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{})
	goLive(srv, clock)

	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "pause")
	drain(srv)
	srv.OnChatCommand("3", "STEAM_1:1:100", domain.TeamCT, "pause")
	assert.Contains(t, strings.Join(drain(srv), "\n"), "already")
}

func TestRoundStartClearsPause(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{})
	goLive(srv, clock)

	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "pause")
	require.True(t, srv.Snapshot().Paused)

	srv.OnRoundStart()
	status := srv.Snapshot()
	assert.False(t, status.Paused)
	assert.False(t, status.Freeze)
}

func TestMapRotation(t *testing.T) {
	srv, clock, sink := newTestServer(t, Defaults{})

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "start de_dust2 de_inferno")
	drain(srv)
	status := srv.Snapshot()
	assert.Equal(t, []string{"de_dust2", "de_inferno"}, status.Maps)
	assert.Equal(t, 0, status.MapIndex)
	require.NotEmpty(t, status.SeriesID)

	srv.OnMapLoaded("de_dust2")
	clock.Advance(10 * time.Second)
	drain(srv)

	goLive(srv, clock)
	srv.OnRoundEnd(16, 10)
	drain(srv)

	srv.OnGameOver()
	status = srv.Snapshot()
	assert.Equal(t, 1, status.MapIndex)
	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "de_inferno")
	assert.NotContains(t, cmds, "changelevel")

	sink.mu.Lock()
	require.Len(t, sink.results, 1)
	result := sink.results[0]
	sink.mu.Unlock()
	assert.Equal(t, "de_dust2", result.Map)
	assert.Equal(t, 16, result.TScore)
	assert.Equal(t, 10, result.CTScore)
	assert.Equal(t, status.SeriesID, result.SeriesID)

	clock.Advance(20 * time.Second)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "changelevel de_inferno")

	// Last map of the series wraps the index back to zero
	srv.OnMapLoaded("de_inferno")
	clock.Advance(10 * time.Second)
	goLive(srv, clock)
	srv.OnGameOver()
	status = srv.Snapshot()
	assert.Equal(t, 0, status.MapIndex)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "Finished the series")
}

func TestStartOnCurrentMap(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{})

	srv.OnMapLoaded("de_nuke")
	clock.Advance(10 * time.Second)
	drain(srv)

	// Rotation starting on the current map skips the level change
	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "start de_nuke")
	cmds := strings.Join(drain(srv), "\n")
	assert.NotContains(t, cmds, "changelevel")
	assert.Contains(t, cmds, "mp_warmup_start")
}

func TestStartWithoutMaps(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{})

	srv.OnMapLoaded("de_train")
	clock.Advance(10 * time.Second)
	drain(srv)

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "start")
	clock.Advance(2 * time.Second)
	status := srv.Snapshot()
	assert.Equal(t, []string{"de_train"}, status.Maps)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "mp_warmup_start")
}

func TestStartGatedWhileLive(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{})
	goLive(srv, clock)
	seriesID := srv.Snapshot().SeriesID

	// Non-admins cannot restart a running match
	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "start de_mirage")
	assert.Equal(t, seriesID, srv.Snapshot().SeriesID)

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "start de_mirage")
	assert.NotEqual(t, seriesID, srv.Snapshot().SeriesID)
}

func TestWarmupRestoresDefaults(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{Knife: true, Record: true, OT: true})
	goLive(srv, clock)
	srv.OnRoundEnd(1, 0) // knife decided
	drain(srv)

	srv.OnMapLoaded("de_overpass")
	clock.Advance(10 * time.Second)
	status := srv.Snapshot()
	assert.False(t, status.Live)
	assert.True(t, status.Knife)
	assert.True(t, status.Record)
	assert.True(t, status.OT)
	assert.Empty(t, status.KnifeWinner)

	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "mp_warmup_start")
	assert.Contains(t, cmds, "mp_overtime_enable 1")
}

func TestReadyTimerForcesStart(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{ReadyTime: 60})

	srv.OnMapLoaded("de_ancient")
	clock.Advance(10 * time.Second)
	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "60")

	clock.Advance(40 * time.Second)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "Starting round")

	clock.Advance(20 * time.Second)
	assert.True(t, srv.Snapshot().Live)
}

func TestReadyCancelsWarmupTimer(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{ReadyTime: 60})

	srv.OnMapLoaded("de_ancient")
	clock.Advance(10 * time.Second)
	goLive(srv, clock)
	drain(srv)

	// The warmup timeout must not fire into the live match
	clock.Advance(time.Hour)
	assert.NotContains(t, strings.Join(drain(srv), "\n"), "Starting round")
}

func TestRecordToggleAndDemoName(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{Record: true})
	joinPlayer(srv, "STEAM_1:0:1", domain.TeamTerrorist, "a", "NAVI")
	joinPlayer(srv, "STEAM_1:0:2", domain.TeamCT, "b", "FaZe")

	srv.OnMapLoaded("de_vertigo")
	clock.Advance(10 * time.Second)
	drain(srv)
	goLive(srv, clock)

	status := srv.Snapshot()
	require.NotEmpty(t, status.DemoName)
	assert.True(t, strings.HasSuffix(status.DemoName, "_de_vertigo_NAVI-FaZe.dem"), status.DemoName)

	// Toggling is gated while live
	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "record")
	assert.True(t, srv.Snapshot().Record)
}

func TestOvertimeAndFullMapToggles(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "ot")
	assert.True(t, srv.Snapshot().OT)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "mp_overtime_enable 1")

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "ot")
	assert.False(t, srv.Snapshot().OT)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "mp_overtime_enable 0")

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "fullmap")
	assert.True(t, srv.Snapshot().FullMap)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "mp_match_can_clinch 0")
}

func TestStatsToChat(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{})
	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "start de_dust2 de_inferno")
	srv.OnMapLoaded("de_dust2")
	clock.Advance(10 * time.Second)
	goLive(srv, clock)
	srv.OnRoundEnd(5, 3)
	drain(srv)

	srv.OnChatCommand("4", "STEAM_1:0:300", domain.TeamSpectator, "score")
	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "de_dust2 5-3")
	assert.Contains(t, cmds, "de_inferno x-x")
}

func TestRestoreRound(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{})
	goLive(srv, clock)

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "restore 7")
	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, `mp_backup_restore_load_file "backup_round07.txt"`)

	clock.Advance(5 * time.Second)
	cmds = strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "mp_unpause_match")

	// Garbage round numbers are ignored
	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "restore seven")
	assert.Empty(t, drain(srv))
}

func TestRawCommandPassthrough(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})

	srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "cmd sv_cheats 1")
	assert.Empty(t, drain(srv))

	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "cmd mp_restartgame 1")
	assert.Equal(t, []string{"mp_restartgame 1"}, drain(srv))
}

func TestSaySanitizes(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})
	srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, `say hellö; "quote`)
	cmds := drain(srv)
	require.NotEmpty(t, cmds)
	joined := strings.Join(cmds, "\n")
	assert.Contains(t, joined, "hello")
	assert.NotContains(t, joined, `"`)
}

func TestQuitDetaches(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})

	assert.False(t, srv.OnChatCommand("2", "STEAM_1:0:100", domain.TeamTerrorist, "quit"))
	assert.True(t, srv.OnChatCommand("2", testAdmin, domain.TeamTerrorist, "quit"))
	assert.Contains(t, strings.Join(drain(srv), "\n"), "Goodbye")
}

func TestAttachWhitelistsAndGreets(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{})
	srv.Attach("192.0.2.10", 26000)

	cmds := strings.Join(drain(srv), "\n")
	assert.Contains(t, cmds, "sv_rcon_whitelist_address 192.0.2.10")
	assert.Contains(t, cmds, "logaddress_add 192.0.2.10:26000")
	assert.Contains(t, cmds, "log on")

	clock.Advance(time.Second)
	assert.Contains(t, strings.Join(drain(srv), "\n"), "OrangeBot")
}

func TestEnqueueSplitsCompound(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})
	srv.mu.Lock()
	srv.enqueue("a; b ;c")
	srv.mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, drain(srv))
}

func TestEventsEmitted(t *testing.T) {
	var mu sync.Mutex
	var events []domain.Event

	clock := newFakeClock()
	srv := NewServer(Options{
		Addr:     "10.0.0.1:27015",
		Console:  &fakeConsole{},
		Admins:   []string{testAdmin},
		Defaults: Defaults{},
		Configs:  writeConfigFiles(t),
		Clock:    clock,
		Notify: func(ev domain.Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	})

	srv.OnMapLoaded("de_dust2")
	clock.Advance(10 * time.Second)
	goLive(srv, clock)
	srv.OnRoundEnd(1, 0)
	srv.OnGameOver()

	mu.Lock()
	defer mu.Unlock()
	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
		assert.Equal(t, "10.0.0.1:27015", ev.Server)
	}
	assert.Contains(t, types, domain.EventMapStart)
	assert.Contains(t, types, domain.EventMatchLive)
	assert.Contains(t, types, domain.EventRoundEnd)
	assert.Contains(t, types, domain.EventSeriesEnd)
}

func TestSnapshotIsACopy(t *testing.T) {
	srv, _, _ := newTestServer(t, Defaults{})
	joinPlayer(srv, "STEAM_1:0:1", domain.TeamTerrorist, "a", "NAVI")

	status := srv.Snapshot()
	status.Players[0].Name = "mutated"
	status.Score["de_x"] = map[string]int{"a": 1}

	fresh := srv.Snapshot()
	assert.Equal(t, "a", fresh.Players[0].Name)
	assert.NotContains(t, fresh.Score, "de_x")
}

func TestDemoNameStampFormat(t *testing.T) {
	srv, clock, _ := newTestServer(t, Defaults{Record: true})
	srv.OnMapLoaded("de_dust2")
	clock.Advance(10 * time.Second)
	goLive(srv, clock)

	name := srv.Snapshot().DemoName
	parts := strings.SplitN(name, "_", 3)
	require.Len(t, parts, 3)
	_, err := time.Parse("2006-01-02_15-04-05", fmt.Sprintf("%s_%s", parts[0], parts[1]))
	assert.NoError(t, err)
}

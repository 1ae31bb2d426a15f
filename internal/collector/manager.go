package collector

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/orangebot/orangebot/internal/config"
	"github.com/orangebot/orangebot/internal/domain"
	"github.com/orangebot/orangebot/internal/match"
	"github.com/orangebot/orangebot/internal/metrics"
	"github.com/orangebot/orangebot/internal/rcon"
)

const drainInterval = 100 * time.Millisecond

// ServerManager owns the UDP log socket and the registry of managed game
// servers. It routes inbound log lines to the per-server match controllers
// and drains their command queues back out over RCON, one command per
// server per tick so the game servers are never flooded.
type ServerManager struct {
	cfg      *config.Config
	results  match.ResultSink
	listener *Listener
	events   chan domain.Event
	log      *logrus.Entry

	// instances maps "host:port" to *instance. The TTL evicts servers
	// that have gone silent; every datagram refreshes it.
	instances *cache.Cache

	done chan struct{}
	wg   sync.WaitGroup
}

type instance struct {
	srv     *match.Server
	console *rcon.Client

	// busy is set while an RCON command is in flight so the drain tick
	// never reorders a server's queue.
	busy int32
}

// NewServerManager creates a manager for the configured game servers
func NewServerManager(cfg *config.Config, results match.ResultSink) *ServerManager {
	m := &ServerManager{
		cfg:     cfg,
		results: results,
		events:  make(chan domain.Event, 100),
		log:     logrus.WithField("component", "manager"),
		done:    make(chan struct{}),
	}

	if ttl := cfg.Socket.IdleEvict; ttl > 0 {
		m.instances = cache.New(ttl, ttl)
	} else {
		m.instances = cache.New(cache.NoExpiration, 0)
	}
	m.instances.OnEvicted(m.onEvicted)

	return m
}

// Events returns the event channel for WebSocket broadcasting
func (m *ServerManager) Events() <-chan domain.Event {
	return m.events
}

// Start binds the log socket, attaches the configured servers and begins
// routing datagrams and draining command queues.
func (m *ServerManager) Start(ctx context.Context) error {
	listener, err := NewListener(m.cfg.Socket.ListenAddr, m.cfg.Socket.Port)
	if err != nil {
		return err
	}
	m.listener = listener

	for _, gs := range m.cfg.Servers {
		if err := m.AttachServer(gs); err != nil {
			m.log.WithFields(logrus.Fields{
				"server": gs.Addr(),
				"error":  err.Error(),
			}).Warn("could not attach server")
		}
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		listener.Run(m.handleDatagram)
	}()

	m.wg.Add(1)
	go m.drainLoop()

	return nil
}

// Stop closes the socket, detaches all servers and waits for the loops
func (m *ServerManager) Stop() {
	m.log.Info("manager stopping")
	close(m.done)
	if m.listener != nil {
		m.listener.Close()
	}
	for addr := range m.instances.Items() {
		m.instances.Delete(addr)
	}
	m.wg.Wait()
	m.log.Info("manager stopped")
}

// AttachServer registers a game server and starts managing it
func (m *ServerManager) AttachServer(gs config.GameServer) error {
	addr := gs.Addr()
	console := rcon.NewClient(addr, gs.RconPassword)
	srv := match.NewServer(match.Options{
		Addr:    addr,
		Console: console,
		Admins:  m.cfg.Admins,
		Defaults: match.Defaults{
			Record:    m.cfg.Defaults.Record,
			Knife:     m.cfg.Defaults.Knife,
			OT:        m.cfg.Defaults.Overtime,
			FullMap:   m.cfg.Defaults.FullMap,
			PauseTime: m.cfg.Defaults.PauseTime,
			ReadyTime: m.cfg.Defaults.ReadyTime,
		},
		Configs: match.ConfigFiles{
			Warmup:   m.cfg.GameConfigs.Warmup,
			Match:    m.cfg.GameConfigs.Match,
			Knife:    m.cfg.GameConfigs.Knife,
			Overtime: m.cfg.GameConfigs.Overtime,
			FullMap:  m.cfg.GameConfigs.FullMap,
		},
		Notify:  m.publish,
		Results: m.results,
	})

	m.instances.SetDefault(addr, &instance{srv: srv, console: console})
	metrics.AttachedServers.Inc()
	m.log.WithField("server", addr).Info("server attached")
	m.publish(domain.Event{
		Type:      domain.EventServerAttached,
		Server:    addr,
		Timestamp: time.Now().UTC(),
	})

	srv.Attach(m.cfg.Socket.PublicIP, m.cfg.Socket.Port)
	if err := m.listener.Provoke(addr); err != nil {
		m.log.WithFields(logrus.Fields{
			"server": addr,
			"error":  err.Error(),
		}).Warn("could not provoke log stream")
	}
	return nil
}

// Detach removes a server from the registry
func (m *ServerManager) Detach(addr string) {
	m.instances.Delete(addr)
}

// Statuses returns a snapshot of every managed server, sorted for stable
// API output.
func (m *ServerManager) Statuses() []match.Status {
	items := m.instances.Items()
	statuses := make([]match.Status, 0, len(items))
	for _, item := range items {
		if inst, ok := item.Object.(*instance); ok {
			statuses = append(statuses, inst.srv.Snapshot())
		}
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Addr < statuses[j].Addr
	})
	return statuses
}

// Status returns the snapshot for one server
func (m *ServerManager) Status(addr string) (match.Status, bool) {
	v, ok := m.instances.Get(addr)
	if !ok {
		return match.Status{}, false
	}
	return v.(*instance).srv.Snapshot(), true
}

// handleDatagram routes one log line to the match controller of the server
// that sent it. Datagrams from unknown senders are dropped.
func (m *ServerManager) handleDatagram(addr, text string) {
	v, ok := m.instances.Get(addr)
	if !ok {
		metrics.DatagramsDropped.Inc()
		m.log.WithField("addr", addr).Warn("datagram from unregistered server")
		return
	}
	inst := v.(*instance)

	// Any traffic counts as activity for idle eviction
	m.instances.SetDefault(addr, inst)
	inst.srv.Touch()

	ev, ok := Parse(text)
	if !ok {
		return
	}
	metrics.EventsParsed.WithLabelValues(ev.Type).Inc()

	switch data := ev.Data.(type) {
	case TeamJoinData:
		inst.srv.OnTeamJoin(data.SteamID, data.NewTeam, data.Name)
	case ClanTagData:
		inst.srv.OnClanTag(data.SteamID, data.Team, data.Name, data.Tag)
	case DisconnectData:
		inst.srv.OnDisconnect(data.SteamID)
	case MapLoadedData:
		inst.srv.OnMapLoaded(data.Map)
	case RoundEndData:
		inst.srv.OnRoundEnd(data.TScore, data.CTScore)
	case ChatCommandData:
		if inst.srv.OnChatCommand(data.PlayerID, data.SteamID, data.Team, data.Cmdline) {
			m.log.WithField("server", addr).Info("detached by admin")
			m.Detach(addr)
		}
	default:
		switch ev.Type {
		case EventTypeMapLoading:
			inst.srv.OnMapLoading()
		case EventTypeRoundStart:
			inst.srv.OnRoundStart()
		case EventTypeGameOver:
			inst.srv.OnGameOver()
		}
	}
}

// drainLoop sends at most one queued command per server every tick
func (m *ServerManager) drainLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.drainTick()
		}
	}
}

func (m *ServerManager) drainTick() {
	for addr, item := range m.instances.Items() {
		inst, ok := item.Object.(*instance)
		if !ok {
			continue
		}
		if !atomic.CompareAndSwapInt32(&inst.busy, 0, 1) {
			continue
		}
		cmd, ok := inst.srv.PopCommand()
		if !ok {
			atomic.StoreInt32(&inst.busy, 0)
			continue
		}

		server := addr
		go func() {
			defer atomic.StoreInt32(&inst.busy, 0)
			if _, err := inst.console.Exec(cmd); err != nil {
				metrics.CommandFailures.Inc()
				m.log.WithFields(logrus.Fields{
					"server": server,
					"error":  err.Error(),
				}).Warn("rcon command failed")
				return
			}
			metrics.CommandsSent.Inc()
		}()
	}
}

// onEvicted runs when a server is detached or idles out. The remaining
// queue is flushed best effort so a parting message still reaches chat,
// then the server is told to stop streaming logs.
func (m *ServerManager) onEvicted(addr string, v interface{}) {
	inst, ok := v.(*instance)
	if !ok {
		return
	}
	metrics.AttachedServers.Dec()
	if inst.srv.Snapshot().Live {
		metrics.LiveMatches.Dec()
	}
	m.log.WithField("server", addr).Info("server detached")
	m.publish(domain.Event{
		Type:      domain.EventServerRemoved,
		Server:    addr,
		Timestamp: time.Now().UTC(),
	})

	go func() {
		for {
			cmd, ok := inst.srv.PopCommand()
			if !ok {
				break
			}
			if _, err := inst.console.Exec(cmd); err != nil {
				break
			}
		}
		inst.console.Exec("logaddress_delall")
		inst.console.Close()
	}()
}

func (m *ServerManager) publish(ev domain.Event) {
	select {
	case m.events <- ev:
	default:
		m.log.WithField("event", ev.Type).Warn("event channel full, dropping")
	}
}

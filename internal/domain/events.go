package domain

import "time"

// Event types for WebSocket notifications
const (
	EventServerAttached = "server_attached"
	EventServerRemoved  = "server_removed"
	EventMapStart       = "map_start"
	EventMatchLive      = "match_live"
	EventRoundEnd       = "round_end"
	EventKnifeDecided   = "knife_decided"
	EventMatchPaused    = "match_paused"
	EventMatchResumed   = "match_resumed"
	EventMapEnd         = "map_end"
	EventSeriesEnd      = "series_end"
)

// Event represents a real-time event for WebSocket broadcast
type Event struct {
	Type      string      `json:"event"`
	Server    string      `json:"server"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// MapStartEvent is sent when a map finishes loading and warmup begins
type MapStartEvent struct {
	Map      string   `json:"map"`
	Rotation []string `json:"rotation,omitempty"`
}

// RoundEndEvent is sent after every scored round
type RoundEndEvent struct {
	Map     string `json:"map"`
	TLabel  string `json:"t_label"`
	CTLabel string `json:"ct_label"`
	TScore  int    `json:"t_score"`
	CTScore int    `json:"ct_score"`
}

// KnifeDecidedEvent is sent when the knife round concludes
type KnifeDecidedEvent struct {
	Winner Team `json:"winner"`
}

// MapEndEvent is sent on game over
type MapEndEvent struct {
	Map      string `json:"map"`
	NextMap  string `json:"next_map,omitempty"`
	DemoName string `json:"demo_name,omitempty"`
}

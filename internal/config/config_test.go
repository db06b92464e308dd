package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Domain != DefaultDomain {
		t.Errorf("domain = %q, want %q", cfg.Domain, DefaultDomain)
	}
	if cfg.WebSocketURL != "wss://"+DefaultDomain+"/ws" {
		t.Errorf("websocket url = %q", cfg.WebSocketURL)
	}
	if cfg.TickRate != DefaultTickRate {
		t.Errorf("tick rate = %d, want %d", cfg.TickRate, DefaultTickRate)
	}
	if cfg.ChunkMillis != DefaultChunkMillis {
		t.Errorf("chunk millis = %d, want %d", cfg.ChunkMillis, DefaultChunkMillis)
	}
	if !cfg.BufferCandidates() {
		t.Error("default candidate policy should buffer")
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DOMAIN", "env.example.com")
	t.Setenv("STUN_SERVER", "stun:env.example.com:3478")
	t.Setenv("VIBB_TICK_RATE", "10")
	t.Setenv("VIBB_CANDIDATE_POLICY", "buffer")

	cfg, err := Load(Options{
		Domain:          "flag.example.com",
		TickRate:        30,
		CandidatePolicy: "drop",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Domain != "flag.example.com" {
		t.Errorf("domain = %q, flags should win over env", cfg.Domain)
	}
	if cfg.STUNServer != "stun:env.example.com:3478" {
		t.Errorf("stun = %q, env should win over defaults", cfg.STUNServer)
	}
	if cfg.TickRate != 30 {
		t.Errorf("tick rate = %d, flags should win over env", cfg.TickRate)
	}
	if cfg.BufferCandidates() {
		t.Error("drop policy should not buffer")
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("DOMAIN", "env.example.com")
	t.Setenv("VIBB_TICK_RATE", "10")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Domain != "env.example.com" {
		t.Errorf("domain = %q, want env value", cfg.Domain)
	}
	if cfg.TickRate != 10 {
		t.Errorf("tick rate = %d, want env value 10", cfg.TickRate)
	}
}

func TestInsecureSchemeAndTURNExpansion(t *testing.T) {
	cfg, err := Load(Options{
		Domain:     "localhost:8080",
		Insecure:   true,
		TURNServer: "turn:relay.example.com",
		TURNUser:   "user",
		TURNPass:   "pass",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.WebSocketURL != "ws://localhost:8080/ws" {
		t.Errorf("websocket url = %q", cfg.WebSocketURL)
	}

	urls := cfg.GetTURNServers()
	if len(urls) != 2 {
		t.Fatalf("turn urls = %v, want udp and tcp variants", urls)
	}
	if urls[0] != "turn:relay.example.com:3478?transport=udp" {
		t.Errorf("turn udp url = %q", urls[0])
	}
	user, pass := cfg.GetTURNCredentials()
	if user != "user" || pass != "pass" {
		t.Errorf("turn credentials = %q/%q", user, pass)
	}
}

func TestNoTURNServersWhenUnconfigured(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if urls := cfg.GetTURNServers(); urls != nil {
		t.Errorf("turn urls = %v, want none", urls)
	}
}

func TestInvalidValuesRejected(t *testing.T) {
	if _, err := Load(Options{TickRate: -5}); err == nil {
		t.Error("negative tick rate accepted")
	}
	if _, err := Load(Options{CandidatePolicy: "hold"}); err == nil {
		t.Error("unknown candidate policy accepted")
	}

	t.Setenv("VIBB_TICK_RATE", "fast")
	if _, err := Load(Options{}); err == nil {
		t.Error("non-numeric VIBB_TICK_RATE accepted")
	}
}

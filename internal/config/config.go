package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default configuration values (production)
const (
	DefaultDomain   = "vibb-backend.onrender.com"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // no TURN relay unless configured
	DefaultTURNUser = ""
	DefaultTURNPass = ""

	// Compositor defaults.
	DefaultTickRate      = 25  // frames per second
	DefaultChunkMillis   = 100 // broadcast chunk duration
	DefaultFrameWidth    = 1280
	DefaultFrameHeight   = 720
	DefaultCandidatePol  = "buffer"
	candidatePolicyDrop  = "drop"
	candidatePolicyBuffr = "buffer"
)

// Config holds application configuration
type Config struct {
	// Domain is the signaling server domain
	Domain string

	// WebSocketURL is constructed from domain
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// Compositor settings
	TickRate    int
	ChunkMillis int

	// CandidatePolicy decides what happens to ICE candidates that arrive
	// before the remote description: "buffer" or "drop".
	CandidatePolicy string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain          string
	Insecure        bool // ws:// instead of wss://, for local servers
	STUNServer      string
	TURNServer      string
	TURNUser        string
	TURNPass        string
	TickRate        int
	CandidatePolicy string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstOf(opts.Domain, os.Getenv("DOMAIN"), DefaultDomain)
	stunServer := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass)

	tickRate := opts.TickRate
	if tickRate == 0 {
		if v := os.Getenv("VIBB_TICK_RATE"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid VIBB_TICK_RATE %q: %w", v, err)
			}
			tickRate = n
		}
	}
	if tickRate == 0 {
		tickRate = DefaultTickRate
	}
	if tickRate < 1 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", tickRate)
	}

	policy := firstOf(opts.CandidatePolicy, os.Getenv("VIBB_CANDIDATE_POLICY"), DefaultCandidatePol)
	if policy != candidatePolicyDrop && policy != candidatePolicyBuffr {
		return nil, fmt.Errorf("invalid candidate policy %q (want %q or %q)",
			policy, candidatePolicyBuffr, candidatePolicyDrop)
	}

	scheme := "wss"
	if opts.Insecure {
		scheme = "ws"
	}
	wsURL := fmt.Sprintf("%s://%s/ws", scheme, domain)

	return &Config{
		Domain:          domain,
		WebSocketURL:    wsURL,
		STUNServer:      stunServer,
		TURNServer:      turnServer,
		TURNUser:        turnUser,
		TURNPass:        turnPass,
		TickRate:        tickRate,
		ChunkMillis:     DefaultChunkMillis,
		CandidatePolicy: policy,
	}, nil
}

// firstOf returns the first non-empty string.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// BufferCandidates reports whether early ICE candidates should be held until
// the remote description is applied.
func (c *Config) BufferCandidates() bool {
	return c.CandidatePolicy == candidatePolicyBuffr
}

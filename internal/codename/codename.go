// Package codename assigns permanent, human-readable episode identifiers.
//
// Format: P0D-S<season>-E<episode>-AXIS-<SYMBOL>. The symbol is drawn from a
// fixed themed pool by the episode's position in the overall run, so the same
// (season, episode) key always resolves to the same codename.
package codename

import (
	"fmt"
	"sort"
)

const (
	// Prefix and Theme are the fixed segments of every codename.
	Prefix = "P0D"
	Theme  = "AXIS"

	// EpisodesPerSeason fixes the pool stride; changing it would reassign
	// symbols for every episode after season one.
	EpisodesPerSeason = 52
)

var symbolSets = map[string][]string{
	"encryption": {
		"CIPHER", "ENCRYPT", "HASH", "TOKEN", "KEY", "SALT",
		"AES", "RSA", "TLS", "SSL", "PKI", "CERT",
	},
	"security": {
		"FIREWALL", "SHIELD", "GUARD", "SENTINEL", "BASTION", "FORTRESS",
		"AEGIS", "BARRIER", "DEFENSE", "PATROL", "WATCH", "VAULT",
	},
	"attack": {
		"BREACH", "EXPLOIT", "PAYLOAD", "VECTOR", "MALWARE", "PHISH",
		"TROJAN", "WORM", "ROOTKIT", "BACKDOOR", "INJECT", "OVERFLOW",
	},
	"network": {
		"PACKET", "ROUTER", "GATEWAY", "PROXY", "TUNNEL", "BRIDGE",
		"NODE", "MESH", "FABRIC", "LINK", "HUB", "SWITCH",
	},
	"data": {
		"STREAM", "BUFFER", "CACHE", "QUEUE", "STACK", "HEAP",
		"BLOCK", "CHUNK", "SHARD", "FRAME", "SEGMENT", "BYTE",
	},
	"protocol": {
		"HTTP", "TCP", "UDP", "DNS", "DHCP", "FTP",
		"SMTP", "SSH", "SNMP", "ICMP", "BGP", "OSPF",
	},
	"operation": {
		"SCAN", "PROBE", "TRACE", "QUERY", "FETCH", "PUSH",
		"PULL", "MERGE", "FORK", "CLONE", "PATCH", "BUILD",
	},
	"status": {
		"ACTIVE", "IDLE", "READY", "ARMED", "ALERT", "LOCKED",
		"SECURE", "OPEN", "CLOSED", "PENDING", "LIVE", "STANDBY",
	},
}

var pool = buildPool()

// buildPool flattens the symbol sets into a deduplicated, sorted list.
func buildPool() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, set := range symbolSets {
		for _, s := range set {
			if !seen[s] {
				seen[s] = true
				symbols = append(symbols, s)
			}
		}
	}
	sort.Strings(symbols)
	return symbols
}

// Symbol returns the pool symbol for an episode. Once the pool is exhausted
// symbols repeat with a numeric suffix (CIPHER, CIPHER1, ...). Keys below
// (1, 1) clamp to the first slot; a malformed record must never panic the
// run.
func Symbol(season, episode int) string {
	if season < 1 {
		season = 1
	}
	if episode < 1 {
		episode = 1
	}
	index := (season-1)*EpisodesPerSeason + (episode - 1)
	base := pool[index%len(pool)]
	if round := index / len(pool); round > 0 {
		return fmt.Sprintf("%s%d", base, round)
	}
	return base
}

// Generate returns the codename for an episode. Deterministic: repeated
// calls for the same key yield the same codename, so replaying an
// assignment can never change a published identifier.
func Generate(season, episode int) string {
	return fmt.Sprintf("%s-S%02d-E%03d-%s-%s", Prefix, season, episode, Theme, Symbol(season, episode))
}

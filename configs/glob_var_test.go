package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/magiconair/properties/assert"
)

func TestLoadRoomConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "room.properties")
	body := "room.clock_seconds=300\n" +
		"room.team_vote_duration=45s\n" +
		"room.low_time_threshold=30\n" +
		"server.listen=127.0.0.1:9000\n" +
		"engine.command=/usr/bin/stockfish\n" +
		"engine.search_depth=20\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	defer func() {
		DefaultClockSeconds = 600
		TeamVoteDuration = 30 * time.Second
		LowTimeThreshold = 60
		ListenAddress = "0.0.0.0:5001"
		EngineCommand = "stockfish"
		EngineSearchDepth = 15
	}()

	err := LoadRoomConfig(path)
	assert.Equal(t, err, nil)
	assert.Equal(t, DefaultClockSeconds, 300)
	assert.Equal(t, TeamVoteDuration, 45*time.Second)
	assert.Equal(t, LowTimeThreshold, 30)
	assert.Equal(t, ListenAddress, "127.0.0.1:9000")
	assert.Equal(t, EngineCommand, "/usr/bin/stockfish")
	assert.Equal(t, EngineSearchDepth, 20)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, ReconnectGrace, 20*time.Second)
}

func TestLoadRoomConfigMissingFile(t *testing.T) {
	err := LoadRoomConfig("/nonexistent/room.properties")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

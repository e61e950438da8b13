package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.capture/internal/config"
	"github.com/banshee-data/motion.capture/internal/db"
	"github.com/banshee-data/motion.capture/internal/exercise"
	"github.com/banshee-data/motion.capture/internal/transport"
)

const legsExercise = "Stand on one leg"

func writeFixtures(t *testing.T, dir string, ids []exercise.SensorID, lines int) {
	t.Helper()
	for _, id := range ids {
		var b strings.Builder
		for i := 0; i < lines; i++ {
			fmt.Fprintf(&b, "%d,0.01,-0.98,0.12,1.5,-2.25,0.5\r\n", i)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, id.String()+".txt"), []byte(b.String()), 0o644))
	}
}

// withFlags overrides flag values for one test.
func withFlags(t *testing.T, set func()) {
	t.Helper()
	saved := []any{*exerciseName, *configPath, *outputDir, *journalPath, *devMode, *fixturesDir, *listen, *grpcListen}
	t.Cleanup(func() {
		*exerciseName = saved[0].(string)
		*configPath = saved[1].(string)
		*outputDir = saved[2].(string)
		*journalPath = saved[3].(string)
		*devMode = saved[4].(bool)
		*fixturesDir = saved[5].(string)
		*listen = saved[6].(string)
		*grpcListen = saved[7].(string)
	})
	set()
}

func TestSessionFileName(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tests := []struct {
		exercise string
		want     string
	}{
		{"Stand on one leg", "stand_on_one_leg_20260314T092653Z_1b4e28ba.csv"},
		{"Criss Cross (leg forward)", "criss_cross__leg_forward__20260314T092653Z_1b4e28ba.csv"},
		{"  Skipping ", "skipping_20260314T092653Z_1b4e28ba.csv"},
	}
	for _, tt := range tests {
		got := sessionFileName(tt.exercise, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", started)
		if got != tt.want {
			t.Errorf("sessionFileName(%q) = %q, want %q", tt.exercise, got, tt.want)
		}
	}
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	printCatalog(&buf, exercise.DefaultCatalog())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, len(exercise.DefaultCatalog().Names()))
	assert.Contains(t, buf.String(), "Stand on one leg")
	assert.Contains(t, buf.String(), "right_leg, left_leg")
}

func TestLoadCatalogDefault(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)
	_, err = c.Lookup(legsExercise)
	assert.NoError(t, err)
}

func TestLoadConfigDefault(t *testing.T) {
	cc, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "./data", cc.GetOutputDir())
	assert.Empty(t, cc.GetJournalPath())
}

func TestOpenPortsDev(t *testing.T) {
	ex, err := exercise.DefaultCatalog().Lookup(legsExercise)
	require.NoError(t, err)

	dir := t.TempDir()
	writeFixtures(t, dir, ex.Sensors, 3)

	ports, err := openPorts(ex, config.EmptyCaptureConfig(), true, dir, nil)
	require.NoError(t, err)
	require.Len(t, ports, 2)
	for id, p := range ports {
		_, ok := p.(*transport.ReplayPort)
		assert.True(t, ok, "port for %s should be a replay port", id)
		p.Close()
	}
}

func TestOpenPortsDevMissingFixture(t *testing.T) {
	ex, err := exercise.DefaultCatalog().Lookup(legsExercise)
	require.NoError(t, err)

	_, err = openPorts(ex, config.EmptyCaptureConfig(), true, t.TempDir(), nil)
	assert.Error(t, err)
}

func TestOpenPortsSerial(t *testing.T) {
	ex, err := exercise.DefaultCatalog().Lookup(legsExercise)
	require.NoError(t, err)

	cc := config.EmptyCaptureConfig()
	cc.Ports = map[string]config.SensorPort{
		"right_leg": {Path: "/dev/ttyUSB0"},
		"left_leg":  {Path: "/dev/ttyUSB1"},
	}

	var opened []*transport.TestablePort
	openFake := func(path string, opts transport.PortOptions) (transport.Port, error) {
		if path == "/dev/ttyUSB1" {
			return nil, errors.New("device busy")
		}
		p := transport.NewTestablePort()
		opened = append(opened, p)
		return p, nil
	}

	_, err = openPorts(ex, cc, false, "", openFake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left_leg")
	require.Len(t, opened, 1)
	assert.True(t, opened[0].Closed(), "ports opened before the failure should be closed")
}

func TestOpenPortsSerialUnconfigured(t *testing.T) {
	ex, err := exercise.DefaultCatalog().Lookup(legsExercise)
	require.NoError(t, err)

	_, err = openPorts(ex, config.EmptyCaptureConfig(), false, "", func(string, transport.PortOptions) (transport.Port, error) {
		t.Fatal("opener should not be called without a configured path")
		return nil, nil
	})
	assert.ErrorContains(t, err, "no serial port configured")
}

func TestRunDevMode(t *testing.T) {
	ex, err := exercise.DefaultCatalog().Lookup(legsExercise)
	require.NoError(t, err)

	fixtures := t.TempDir()
	out := t.TempDir()
	journal := filepath.Join(t.TempDir(), "journal.db")
	writeFixtures(t, fixtures, ex.Sensors, 5)

	withFlags(t, func() {
		*exerciseName = legsExercise
		*devMode = true
		*fixturesDir = fixtures
		*outputDir = out
		*journalPath = journal
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, exercise.DefaultCatalog()))

	files, err := filepath.Glob(filepath.Join(out, "stand_on_one_leg_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	header, _, _ := strings.Cut(string(data), "\n")
	assert.Equal(t, strings.Join(ex.Columns, ","), header)

	j, err := db.NewDB(journal)
	require.NoError(t, err)
	defer j.Close()
	var state string
	require.NoError(t, j.QueryRow(`SELECT state FROM capture_sessions`).Scan(&state))
	assert.Equal(t, "stopped", state)
}

func TestRunUnknownExercise(t *testing.T) {
	withFlags(t, func() { *exerciseName = "Juggling" })
	err := run(context.Background(), exercise.DefaultCatalog())
	assert.ErrorIs(t, err, exercise.ErrUnknownExercise)
}

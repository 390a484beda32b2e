package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/stitts-dev/ff-draft-sim/internal/models"
)

// Header is the column layout of a projection table.
var Header = []string{"player_id", "full_name", "team", "position", "points", "simulation_count", "player_object"}

// WriteCSV writes players as a projection table. Points use the shortest
// representation that parses back to the same float; never observed players
// are written as -Inf.
func WriteCSV(w io.Writer, players []models.ProjectedPlayer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, p := range players {
		object, err := json.Marshal(p.Player)
		if err != nil {
			return fmt.Errorf("failed to encode player %s: %w", p.Player.ID, err)
		}
		row := []string{
			p.Player.ID,
			p.Player.FullName,
			p.Player.Team,
			p.Position.String(),
			strconv.FormatFloat(p.ProjectedPoints, 'g', -1, 64),
			strconv.Itoa(p.SimulationCount),
			string(object),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write player %s: %w", p.Player.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) ([]models.ProjectedPlayer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty projection table")
		}
		return nil, fmt.Errorf("failed to read headers: %w", err)
	}
	for i, col := range Header {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %q at %d, want %q", header[i], i, col)
		}
	}

	var players []models.ProjectedPlayer
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var player models.Player
		if err := json.Unmarshal([]byte(row[6]), &player); err != nil {
			return nil, fmt.Errorf("line %d: invalid player_object: %w", line, err)
		}
		if player.ID != row[0] {
			return nil, fmt.Errorf("line %d: player_object id %q does not match %q", line, player.ID, row[0])
		}

		points, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid points: %w", line, err)
		}
		if math.IsNaN(points) {
			return nil, fmt.Errorf("line %d: points must not be NaN", line)
		}
		count, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid simulation_count: %w", line, err)
		}

		projected, ok := models.NewProjectedPlayer(player, points, 0, count)
		if !ok || projected.Position.String() != row[3] {
			return nil, fmt.Errorf("line %d: position %q does not match player position %q", line, row[3], player.Position)
		}
		players = append(players, projected)
	}

	return players, nil
}

// SaveFile writes players to path, creating parent directories.
func SaveFile(path string, players []models.ProjectedPlayer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, players); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a projection table from path.
func LoadFile(path string) ([]models.ProjectedPlayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// Command analyze prints quick, human-readable checks about the race presets
// in a configs directory. It summarizes capacity, palette and spawn settings,
// and highlights presets whose racers would end up sharing a colour.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/raceroom/game/room"
)

// Analysis is the outcome of checking one preset file
type Analysis struct {
	File       string
	Preset     room.Preset
	Invalid    error
	Duplicates []string // colours listed more than once
	Shared     int      // racers that reuse an earlier racer's colour at full capacity
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No presets found in %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analysis, err := analyzePreset(file)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		report(os.Stdout, analysis)
	}
}

func analyzePreset(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	a := &Analysis{File: filepath.Base(path)}
	if err := json.Unmarshal(data, &a.Preset); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	a.Invalid = room.ValidatePreset(&a.Preset)

	seen := map[string]bool{}
	for _, c := range a.Preset.Palette {
		c = strings.ToUpper(c)
		if seen[c] && !contains(a.Duplicates, c) {
			a.Duplicates = append(a.Duplicates, c)
		}
		seen[c] = true
	}

	if distinct := len(seen); distinct > 0 && a.Preset.Capacity > distinct {
		a.Shared = a.Preset.Capacity - distinct
	}

	return a, nil
}

func report(w io.Writer, a *Analysis) {
	p := a.Preset
	fmt.Fprintf(w, "Name: %s\n", p.Name)
	fmt.Fprintf(w, "Capacity: %d\n", p.Capacity)
	fmt.Fprintf(w, "Palette: %d colours\n", len(p.Palette))
	fmt.Fprintf(w, "Spawn: (%.0f, %.0f)\n", p.ArenaWidth/2, p.SpawnY)

	if a.Invalid != nil {
		fmt.Fprintf(w, "⚠️  INVALID: %v\n", a.Invalid)
		return
	}

	if len(a.Duplicates) > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: palette repeats %s\n", strings.Join(a.Duplicates, ", "))
	}

	if a.Shared > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: a full room gives %d racer(s) a colour already in use\n", a.Shared)
	} else {
		fmt.Fprintf(w, "✅ Every racer in a full room gets a distinct colour\n")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

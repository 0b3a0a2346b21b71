package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/goccy/go-yaml"
)

// actionFile is the YAML document the commands operate on. Properties are a
// list so declaration order survives decoding.
type actionFile struct {
	Piece struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"piece"`
	Action struct {
		Name        string           `yaml:"name"`
		DisplayName string           `yaml:"displayName"`
		Description string           `yaml:"description"`
		RequireAuth bool             `yaml:"requireAuth"`
		Props       []map[string]any `yaml:"props"`
	} `yaml:"action"`
	Input map[string]any `yaml:"input"`
}

type loadedAction struct {
	Ref    piece.ActionRef
	Action *piece.Action
	Input  core.Input
}

func loadActionFile(path string) (*loadedAction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action file: %w", err)
	}
	var doc actionFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse action file %s: %w", path, err)
	}
	if doc.Action.Name == "" {
		return nil, core.Errorf(core.ErrCodeInvalidConfig, map[string]any{"file": path},
			"action file %s has no action name", path)
	}
	props := make(piece.Properties, 0, len(doc.Action.Props))
	for i, rawProp := range doc.Action.Props {
		name, _ := rawProp["name"].(string)
		if name == "" {
			return nil, core.Errorf(core.ErrCodeInvalidConfig, map[string]any{"index": i},
				"property #%d has no name", i)
		}
		prop, err := piece.DecodeProperty(rawProp)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		props = append(props, piece.NamedProperty{Name: name, Property: prop})
	}
	return &loadedAction{
		Ref: piece.ActionRef{
			PieceName:    doc.Piece.Name,
			PieceVersion: doc.Piece.Version,
			ActionName:   doc.Action.Name,
		},
		Action: &piece.Action{
			Name:        doc.Action.Name,
			DisplayName: doc.Action.DisplayName,
			Description: doc.Action.Description,
			RequireAuth: doc.Action.RequireAuth,
			Props:       props,
		},
		Input: core.Input(doc.Input),
	}, nil
}

// fileSource serves the single piece declared by an action file to the
// catalog.
type fileSource struct {
	loaded *loadedAction
}

func (s *fileSource) LoadPiece(_ context.Context, name, version string) (*piece.Metadata, error) {
	ref := s.loaded.Ref
	if name != ref.PieceName || version != ref.PieceVersion {
		return nil, core.Errorf(core.ErrCodeActionNotFound, map[string]any{"piece": name, "version": version},
			"piece %s@%s not found", name, version)
	}
	return &piece.Metadata{
		Name:    ref.PieceName,
		Version: ref.PieceVersion,
		Actions: map[string]piece.Action{ref.ActionName: *s.loaded.Action},
	}, nil
}

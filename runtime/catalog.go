package runtime

import (
	"embed"
	"encoding/json"
	"fmt"

	"mixmatch/domain"
)

//go:embed catalog/*
var catalogFolder embed.FS

// Catalog is the track source used when a host did not seed a room.
type Catalog struct {
	fallback []domain.Track
}

// LoadCatalog reads the embedded fallback tracks.
func LoadCatalog() (*Catalog, error) {
	data, err := catalogFolder.ReadFile("catalog/tracks.json")
	if err != nil {
		return nil, err
	}
	var tracks []domain.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return NewCatalog(tracks), nil
}

func NewCatalog(tracks []domain.Track) *Catalog {
	return &Catalog{fallback: domain.NormalizeTracks(tracks)}
}

func (c *Catalog) Size() int { return len(c.fallback) }

// ListFor returns a fresh copy: seeded tracks when present, else the fallback.
func (c *Catalog) ListFor(_ domain.RoomCode, seeded []domain.Track) []domain.Track {
	if len(seeded) > 0 {
		return append([]domain.Track(nil), seeded...)
	}
	return append([]domain.Track(nil), c.fallback...)
}

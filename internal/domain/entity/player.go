package entity

// Player is a roster entry. Alive-ness is derived from the owning Room's
// eliminated set rather than stored here, so it can never drift out of sync.
type Player struct {
	ID          string
	Name        string
	IsConnected bool
}

// NewPlayer creates a roster entry for a freshly joined player.
func NewPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name, IsConnected: true}
}

// PlayerDTO is the player shape sent to clients.
type PlayerDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsHost      bool   `json:"is_host"`
	IsReady     bool   `json:"is_ready"`
	IsConnected bool   `json:"is_connected"`
	Alive       bool   `json:"alive"`
}

package model

import "time"

type SeedState string

const (
	SeedActive   SeedState = "active"
	SeedRevealed SeedState = "revealed"
)

// SeedPair is one commitment issued to a user. While active its ServerSeed is secret and only
// ServerSeedHash may leave the service.
type SeedPair struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"user_id"`
	ClientSeed     string     `json:"client_seed"`
	ServerSeed     string     `json:"server_seed"`
	ServerSeedHash string     `json:"server_seed_hash"`
	Nonce          int64      `json:"nonce"`
	IsActive       bool       `json:"is_active"`
	RevealedAt     *time.Time `json:"revealed_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (p SeedPair) State() SeedState {
	if p.IsActive {
		return SeedActive
	}

	return SeedRevealed
}

// Reveal retires an active pair. A revealed pair can never be revealed again or reactivated.
func (p SeedPair) Reveal(at time.Time) (SeedPair, error) {
	if p.State() != SeedActive {
		return p, NewError(KindInvalidInput, "seed pair %d is already revealed", p.ID)
	}

	at = at.UTC()
	p.IsActive = false
	p.RevealedAt = &at

	return p, nil
}

// PublicSeedPair is what may be shown to anyone: the server seed is present only once revealed.
type PublicSeedPair struct {
	UserID         string     `json:"user_id"`
	ClientSeed     string     `json:"client_seed"`
	ServerSeed     string     `json:"server_seed,omitempty"`
	ServerSeedHash string     `json:"server_seed_hash"`
	Nonce          int64      `json:"nonce"`
	State          SeedState  `json:"state"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (p SeedPair) Public() PublicSeedPair {
	pub := PublicSeedPair{
		UserID:         p.UserID,
		ClientSeed:     p.ClientSeed,
		ServerSeedHash: p.ServerSeedHash,
		Nonce:          p.Nonce,
		State:          p.State(),
		RevealedAt:     p.RevealedAt,
		CreatedAt:      p.CreatedAt,
	}

	if pub.State == SeedRevealed {
		pub.ServerSeed = p.ServerSeed
	}

	return pub
}

// Rotation is the outcome of retiring the active pair and issuing its successor.
type Rotation struct {
	Revealed SeedPair
	Next     SeedPair
}

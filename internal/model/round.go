package model

// RoundRecord is an immutable record of one played round. Before reveal ServerSeed is empty and
// only ServerSeedHash is known.
type RoundRecord struct {
	UserID         string `json:"user_id,omitempty"`
	ClientSeed     string `json:"client_seed"`
	ServerSeed     string `json:"server_seed,omitempty"`
	ServerSeedHash string `json:"server_seed_hash"`
	Nonce          int64  `json:"nonce"`
	ClaimedTicket  int    `json:"claimed_ticket"`
}

// Verification is the result of replaying a RoundRecord.
type Verification struct {
	Valid          bool      `json:"valid"`
	Reason         ErrorKind `json:"reason,omitempty"`
	ComputedHash   string    `json:"computed_hash"`
	ComputedTicket int       `json:"computed_ticket,omitempty"`
	ClaimedTicket  int       `json:"claimed_ticket"`
}

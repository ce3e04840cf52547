package provably_fair

import (
	"fmt"
	"strconv"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

const (
	TicketMin = 1
	TicketMax = 1_000_000

	// 13 hex digits are 52 bits, well inside uint64.
	ticketHexDigits = 13
)

// Message builds the string that is hashed for a round. Seeds are joined with raw colons and
// no escaping, so seeds containing ':' can collide across distinct triples.
func Message(clientSeed, serverSeed string, nonce int64) string {
	return fmt.Sprintf("%s:%s:%d", clientSeed, serverSeed, nonce)
}

// DeriveTicket maps (client seed, server seed, nonce) to a ticket in [TicketMin, TicketMax].
func DeriveTicket(clientSeed, serverSeed string, nonce int64) (int, error) {
	const op = "provably_fair.DeriveTicket"

	switch {
	case clientSeed == "":
		return 0, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "client seed is empty"))
	case serverSeed == "":
		return 0, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "server seed is empty"))
	case nonce < 0:
		return 0, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "nonce %d is negative", nonce))
	}

	return TicketFromHash(Digest([]byte(Message(clientSeed, serverSeed, nonce))))
}

// TicketFromHash is the second stage of DeriveTicket: the first 13 hex digits of hash,
// reduced modulo TicketMax and shifted into the closed range.
func TicketFromHash(hash string) (int, error) {
	const op = "provably_fair.TicketFromHash"

	if len(hash) < ticketHexDigits {
		return 0, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "hash %q is too short", hash))
	}

	value, err := strconv.ParseUint(hash[:ticketHexDigits], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "hash prefix is not hex: %v", err))
	}

	return int(value%TicketMax) + TicketMin, nil
}

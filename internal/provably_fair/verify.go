package provably_fair

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

// Verify replays a round from its revealed server seed. It never mutates anything and may be
// run by anyone holding the record.
//
// The returned error is only set for records that cannot be replayed at all (missing seeds,
// negative nonce). Integrity failures are reported through Verification.Reason.
func Verify(record model.RoundRecord) (model.Verification, error) {
	const op = "provably_fair.Verify"

	result := model.Verification{ClaimedTicket: record.ClaimedTicket}

	switch {
	case record.ServerSeed == "":
		return result, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "server seed is not revealed"))
	case record.ServerSeedHash == "":
		return result, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "published server seed hash is empty"))
	case record.ClientSeed == "":
		return result, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "client seed is empty"))
	case record.Nonce < 0:
		return result, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "nonce %d is negative", record.Nonce))
	}

	result.ComputedHash = Commit(record.ServerSeed)

	published := strings.ToLower(strings.TrimSpace(record.ServerSeedHash))
	if subtle.ConstantTimeCompare([]byte(result.ComputedHash), []byte(published)) != 1 {
		result.Reason = model.KindSeedSubstituted

		return result, nil
	}

	ticket, err := DeriveTicket(record.ClientSeed, record.ServerSeed, record.Nonce)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}

	result.ComputedTicket = ticket

	if ticket != record.ClaimedTicket {
		result.Reason = model.KindTicketMismatch

		return result, nil
	}

	result.Valid = true

	return result, nil
}

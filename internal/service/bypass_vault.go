package service

import (
	"context"
	"crypto/subtle"

	"classforge/internal/repository"
	"classforge/internal/utils"

	"github.com/google/uuid"
)

const (
	// BypassTokenCount is the fixed batch size; a user holds either zero
	// tokens or a freshly issued full batch, shrinking by one per use.
	BypassTokenCount  = 10
	BypassTokenLength = 8
)

// BypassVault manages single-use recovery tokens. Plaintexts leave the vault
// exactly once, as the return value of Generate.
type BypassVault struct {
	tokens repository.OtpBypassTokenRepository
}

func NewBypassVault(tokens repository.OtpBypassTokenRepository) *BypassVault {
	return &BypassVault{tokens: tokens}
}

// Generate replaces the user's entire token set with a fresh batch and
// returns the plaintexts. Old tokens stop working the moment this returns.
func (v *BypassVault) Generate(ctx context.Context, userID uuid.UUID) ([]string, error) {
	plaintexts := make([]string, 0, BypassTokenCount)
	hashes := make([]string, 0, BypassTokenCount)
	for i := 0; i < BypassTokenCount; i++ {
		token, err := utils.GenerateRandomString(BypassTokenLength, utils.BypassTokenAlphabet)
		if err != nil {
			return nil, err
		}
		plaintexts = append(plaintexts, token)
		hashes = append(hashes, utils.HashToken(token))
	}
	if err := v.tokens.ReplaceForUser(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return plaintexts, nil
}

// Consume checks the candidate against every stored token for the user and
// deletes the matching row. Tokens are unordered, so the whole set is
// scanned rather than stopping at the first mismatch.
func (v *BypassVault) Consume(ctx context.Context, userID uuid.UUID, candidate string) (bool, error) {
	if len(candidate) != BypassTokenLength {
		return false, nil
	}
	stored, err := v.tokens.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}

	candidateHash := utils.HashToken(candidate)
	matched := uuid.Nil
	for _, token := range stored {
		if subtle.ConstantTimeCompare([]byte(candidateHash), []byte(token.TokenHash)) == 1 {
			matched = token.ID
		}
	}
	if matched == uuid.Nil {
		return false, nil
	}
	if err := v.tokens.Delete(ctx, matched); err != nil {
		return false, err
	}
	return true, nil
}

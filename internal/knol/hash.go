package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// fold lowercases a field, unifies CRLF line endings and trims it.
func fold(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(s), "\r\n", "\n"))
}

// Normalize is the canonical text of a seed: question, answer and context,
// each folded, one per line. The separator keeps "ab"+"c" apart from "a"+"bc".
func Normalize(seed domain.Seed) string {
	var b strings.Builder
	for i, field := range []string{seed.Question, seed.Answer, seed.Context} {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(fold(field))
	}
	return b.String()
}

// Hash returns the hex SHA-256 of Normalize(seed). Loading the same markdown
// again yields the same id, so reviews stay attached to seed cards across
// restarts.
func Hash(seed domain.Seed) string {
	h := sha256.New()
	io.WriteString(h, Normalize(seed))
	return hex.EncodeToString(h.Sum(nil))
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// HashFilesFunc computes a content hash over the files matched by the given
// patterns, relative to the pipeline root. Implementations live in the fs
// adapter; the domain only sees the contract.
type HashFilesFunc func(patterns []string) (string, error)

// ExpandCacheKey expands a cache key template into a concrete key.
//
// Two token forms are supported:
//
//	${matrix.NAME}          the matrix value assigned to NAME
//	${hashFiles:PATTERNS}   content hash of the files matched by the
//	                        comma-separated glob PATTERNS
//
// Example: "venv-${matrix.python}-${hashFiles:poetry.lock}" expands to
// "venv-3.9-9a51be12f1d0a423" for the 3.9 matrix entry.
func ExpandCacheKey(template string, values map[string]string, hashFiles HashFilesFunc) (string, error) {
	var b strings.Builder
	rest := template

	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, "}")
		if end < 0 {
			return "", zerr.With(zerr.Wrap(ErrInvalidCacheKey, "unterminated token"), "template", template)
		}
		token := rest[:end]
		rest = rest[end+1:]

		expanded, err := expandToken(token, values, hashFiles)
		if err != nil {
			return "", zerr.With(err, "template", template)
		}
		b.WriteString(expanded)
	}
}

func expandToken(token string, values map[string]string, hashFiles HashFilesFunc) (string, error) {
	switch {
	case strings.HasPrefix(token, "matrix."):
		name := strings.TrimPrefix(token, "matrix.")
		value, ok := values[name]
		if !ok {
			return "", zerr.With(zerr.Wrap(ErrUnknownMatrixParameter, "cannot expand token"), "parameter", name)
		}
		return value, nil

	case strings.HasPrefix(token, "hashFiles:"):
		if hashFiles == nil {
			return "", zerr.With(zerr.Wrap(ErrInvalidCacheKey, "hashFiles not available here"), "token", token)
		}
		patterns := strings.Split(strings.TrimPrefix(token, "hashFiles:"), ",")
		for i := range patterns {
			patterns[i] = strings.TrimSpace(patterns[i])
		}
		return hashFiles(patterns)

	default:
		return "", zerr.With(zerr.Wrap(ErrInvalidCacheKey, "unknown token"), "token", token)
	}
}

// InterpolateMatrix replaces ${matrix.NAME} tokens in s with the assigned
// values. Strings without tokens are returned unchanged. Unknown parameters
// are an error so typos in tool specs and step arguments surface early.
func InterpolateMatrix(s string, values map[string]string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	return ExpandCacheKey(s, values, nil)
}

// GenerateEnvID creates a deterministic hash from a tools map for environment
// caching. Two jobs requesting the same tool set share one environment.
func GenerateEnvID(tools map[string]string) string {
	// Sort keys for deterministic ordering
	aliases := make([]string, 0, len(tools))
	for alias := range tools {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)

	var builder strings.Builder
	for _, alias := range aliases {
		builder.WriteString(alias)
		builder.WriteString(":")
		builder.WriteString(tools[alias])
		builder.WriteString(";")
	}

	hash := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}

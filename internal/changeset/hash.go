package changeset

import "github.com/kilnforge/changeforge/internal/canonjson"

func hashCanonical(v any) (string, error) {
	return canonjson.Hash(v)
}

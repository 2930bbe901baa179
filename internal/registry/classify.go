package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ErrNotRecognized is matched by errors.Is for every classification failure.
var ErrNotRecognized = errors.New("schema not recognized")

// maxHintDistance bounds how far a misspelled identifier may be from a known
// one before no hint is offered.
const maxHintDistance = 6

// NotRecognizedError reports a document whose "$schema" field is missing or
// names neither grammar.
type NotRecognizedError struct {
	// Got is the "$schema" value found, empty when absent or not a string.
	Got string
	// Hint is the closest known identifier, if any was close enough.
	Hint string
}

func (e *NotRecognizedError) Error() string {
	msg := fmt.Sprintf("You need to set $schema=%s or $schema=%s in your spec.", VegaLiteSchemaID, VegaSchemaID)
	if e.Hint != "" {
		msg += fmt.Sprintf(" Did you mean %s?", e.Hint)
	}
	return msg
}

func (e *NotRecognizedError) Is(target error) bool {
	return target == ErrNotRecognized
}

// Classify selects the grammar of a parsed document by its "$schema" field.
// The value must equal one of the two identifiers exactly.
func Classify(doc map[string]any) (Tag, error) {
	got, _ := doc["$schema"].(string)
	switch got {
	case VegaLiteSchemaID:
		return VegaLite, nil
	case VegaSchemaID:
		return Vega, nil
	}
	return 0, &NotRecognizedError{Got: got, Hint: closestID(got)}
}

// closestID finds the known identifier the given value most likely meant.
// Abbreviations such as "vega-lite" are matched as fuzzy subsequences first;
// otherwise small edits such as a wrong version number are caught by edit
// distance.
func closestID(got string) string {
	if got == "" {
		return ""
	}
	ids := []string{VegaLiteSchemaID, VegaSchemaID}

	ranks := fuzzy.RankFindFold(got, ids)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", maxHintDistance+1
	for _, id := range ids {
		if d := fuzzy.LevenshteinDistance(got, id); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

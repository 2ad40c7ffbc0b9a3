package schema

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation failures that survive normalization. Anything else the model
// gets wrong is tolerated or repaired.
var (
	// ErrMissingProject means the record has no top-level project object.
	ErrMissingProject = errors.New("schema: record is missing the project object")
	// ErrMissingTalents means no talent posting survived normalization.
	ErrMissingTalents = errors.New("schema: record has no talent postings")
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize rewrites field-name drift in a parsed record into the canonical
// shape: a "project" object plus a non-empty "talents" array. Rules, in order:
//
//  1. no project object -> ErrMissingProject
//  2. singular "talent" key and no "talents" -> wrap into a one-element
//     "talents" array, drop "talent"
//  3. "talents" present but not an array -> wrap into a one-element array
//  4. "talents" still empty or absent -> ErrMissingTalents
//
// Missing identity fields (project id, slug, talent ids) are backfilled so a
// record the model left incomplete still round-trips through storage.
// The input map is not modified.
func (d *Definition) Normalize(record map[string]any) (map[string]any, error) {
	if record == nil {
		return nil, ErrMissingProject
	}

	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}

	project, ok := out["project"].(map[string]any)
	if !ok {
		return nil, ErrMissingProject
	}

	if talent, hasSingular := out["talent"]; hasSingular {
		if _, hasPlural := out["talents"]; !hasPlural {
			out["talents"] = []any{talent}
		}
		delete(out, "talent")
	}

	switch talents := out["talents"].(type) {
	case nil:
		return nil, ErrMissingTalents
	case []any:
		if len(talents) == 0 {
			return nil, ErrMissingTalents
		}
	default:
		out["talents"] = []any{talents}
	}

	out["project"] = ensureProjectIdentity(project)

	talents := out["talents"].([]any)
	normalized := make([]any, len(talents))
	for i, t := range talents {
		if m, ok := t.(map[string]any); ok {
			normalized[i] = ensureID(m)
		} else {
			normalized[i] = t
		}
	}
	out["talents"] = normalized

	return out, nil
}

func ensureProjectIdentity(project map[string]any) map[string]any {
	out := ensureID(project)
	if s, _ := out["slug"].(string); s == "" {
		if title, _ := out["title"].(string); title != "" {
			out["slug"] = Slugify(title)
		}
	}
	return out
}

func ensureID(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	if s, _ := out["id"].(string); s == "" {
		out["id"] = uuid.NewString()
	}
	return out
}

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"socketcraft.ai/internal/item"
)

// Top-level document fields that never take part in stack identity.
var volatileFields = []string{"_id", "_stats", "sort", "folder", "ownership", "quantity"}

// Fingerprint returns a canonical JSON rendering of the document with
// identity and bookkeeping fields removed. Object keys are sorted and arrays
// keep their order, so two documents that differ only in key order, id,
// stats, sort, folder, ownership or quantity fingerprint equal.
func Fingerprint(it *item.Item) (string, error) {
	raw, err := json.Marshal(it)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	for _, k := range volatileFields {
		delete(doc, k)
	}
	if sys, ok := doc["system"].(map[string]any); ok {
		delete(sys, "quantity")
		if len(sys) == 0 {
			delete(doc, "system")
		}
	}
	// encoding/json writes map keys in sorted order.
	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return string(out), nil
}

// SameStack reports whether a and b are the same stackable item. When both
// carry a source-identity tag the tags decide; when only one does they never
// stack; otherwise fingerprints decide.
func SameStack(a, b *item.Item) (bool, error) {
	sa, sb := a.SourceID(), b.SourceID()
	switch {
	case sa != "" && sb != "":
		return sa == sb, nil
	case sa != "" || sb != "":
		return false, nil
	}
	fa, err := Fingerprint(a)
	if err != nil {
		return false, err
	}
	fb, err := Fingerprint(b)
	if err != nil {
		return false, err
	}
	return fa == fb, nil
}

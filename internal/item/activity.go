package item

import "encoding/json"

// Activity is an activated ability embedded in an item.
type Activity struct {
	ID   string         `json:"_id"`
	Type string         `json:"type"`
	Name string         `json:"name,omitempty"`
	Img  string         `json:"img,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// ActivityUpdate is applied to a host item as one document update: the
// activity creations, deletions and flag write land together or not at all.
// An empty FlagKey leaves flags untouched; a nil Flag unsets the key.
type ActivityUpdate struct {
	Create []Activity
	Delete []string

	FlagNS  string
	FlagKey string
	Flag    json.RawMessage
}

// Apply performs the update on it in place.
func (u ActivityUpdate) Apply(it *Item) {
	if len(u.Delete) > 0 && it.Activities != nil {
		for _, id := range u.Delete {
			delete(it.Activities, id)
		}
	}
	if len(u.Create) > 0 {
		if it.Activities == nil {
			it.Activities = map[string]Activity{}
		}
		for _, a := range u.Create {
			it.Activities[a.ID] = a.Clone()
		}
	}
	if u.FlagKey == "" {
		return
	}
	if u.Flag == nil {
		it.UnsetFlag(u.FlagNS, u.FlagKey)
		return
	}
	it.SetFlag(u.FlagNS, u.FlagKey, u.Flag)
}

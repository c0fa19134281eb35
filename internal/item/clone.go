package item

import "encoding/json"

// Clone returns a deep copy of the item, including OwnerID.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := *it
	out.System = cloneMap(it.System)
	out.Stats = cloneMap(it.Stats)
	if it.Effects != nil {
		out.Effects = make([]Effect, len(it.Effects))
		for i, e := range it.Effects {
			out.Effects[i] = e.Clone()
		}
	}
	if it.Activities != nil {
		out.Activities = make(map[string]Activity, len(it.Activities))
		for id, a := range it.Activities {
			out.Activities[id] = a.Clone()
		}
	}
	if it.Flags != nil {
		out.Flags = make(map[string]map[string]json.RawMessage, len(it.Flags))
		for ns, m := range it.Flags {
			cp := make(map[string]json.RawMessage, len(m))
			for k, v := range m {
				cp[k] = append(json.RawMessage(nil), v...)
			}
			out.Flags[ns] = cp
		}
	}
	if it.Ownership != nil {
		out.Ownership = make(map[string]int, len(it.Ownership))
		for k, v := range it.Ownership {
			out.Ownership[k] = v
		}
	}
	return &out
}

func (e Effect) Clone() Effect {
	out := e
	if e.Changes != nil {
		out.Changes = append([]EffectChange(nil), e.Changes...)
	}
	out.Duration = cloneMap(e.Duration)
	if e.Socket != nil {
		tag := *e.Socket
		out.Socket = &tag
	}
	return out
}

func (a Activity) Clone() Activity {
	out := a
	out.Data = cloneMap(a.Data)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case json.RawMessage:
		return append(json.RawMessage(nil), x...)
	default:
		return v
	}
}

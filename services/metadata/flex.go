package metadata

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Provider payloads are loosely typed: numbers arrive as strings, objects
// arrive as bare IDs when a field was not expanded. The flex types below
// decode whatever shape they get and never fail the enclosing document.

// flexFloat decodes a JSON number or numeric string. Malformed strings decode
// as a valid zero, matching how the frontend parsed ratings.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			v = 0
		}
		*f = flexFloat{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	*f = flexFloat{Value: v, Valid: true}
	return nil
}

func (f flexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// flexInt decodes a JSON integer, float or numeric string.
type flexInt struct {
	Value int64
	Valid bool
}

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var f flexFloat
	_ = f.UnmarshalJSON(b)
	if !f.Valid {
		*i = flexInt{}
		return nil
	}
	*i = flexInt{Value: int64(f.Value), Valid: true}
	return nil
}

func (i flexInt) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(i.Value)
}

func (i flexInt) String() string {
	if !i.Valid {
		return ""
	}
	return strconv.FormatInt(i.Value, 10)
}

// flexText decodes a plain string, a number, or an OpenLibrary typed text
// object ({"type": "/type/text", "value": "..."}).
type flexText string

func (t *flexText) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*t = flexText(s)
		}
	case '{':
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(b, &obj); err == nil {
			*t = flexText(obj.Value)
		}
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			*t = flexText(n.String())
		}
	}
	return nil
}

// namedRef is an object with a name, or a bare ID when IGDB did not expand it.
type namedRef struct {
	ID   int64
	Name string
}

func (n *namedRef) UnmarshalJSON(b []byte) error {
	*n = namedRef{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		var id flexInt
		_ = id.UnmarshalJSON(b)
		n.ID = id.Value
		return nil
	}
	var obj struct {
		ID   flexInt  `json:"id"`
		Name flexText `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	n.ID = obj.ID.Value
	n.Name = strings.TrimSpace(string(obj.Name))
	return nil
}

func names(refs []namedRef) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, r := range refs {
		if r.Name == "" || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r.Name)
	}
	return out
}

package utils

import "encoding/json"

// Serialize/Unserialize fix the store value encoding in one place; task refs
// and any future persisted records go through these.
func Serialize(o any) ([]byte, error) {
	return json.Marshal(o)
}

func Unserialize(b []byte, o any) error {
	return json.Unmarshal(b, o)
}

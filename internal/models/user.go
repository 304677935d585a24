package models

import (
	"fmt"
	"strconv"
)

// User is the backend's user object. It is kept as a generic JSON object so
// profile fields the client does not know about survive a round trip.
type User map[string]any

// ID returns the user id as a string ("id" or "_id").
func (u User) ID() string {
	for _, k := range []string{"id", "_id"} {
		if v, ok := u[k]; ok && v != nil {
			return stringify(v)
		}
	}
	return ""
}

// Name returns the user's display name.
func (u User) Name() string { return u.str("name") }

// Email returns the user's email.
func (u User) Email() string { return u.str("email") }

func (u User) str(key string) string {
	if v, ok := u[key]; ok && v != nil {
		return stringify(v)
	}
	return ""
}

// Clone returns a shallow copy of u. A nil user clones to nil.
func (u User) Clone() User {
	if u == nil {
		return nil
	}
	c := make(User, len(u))
	for k, v := range u {
		c[k] = v
	}
	return c
}

// Merge returns a new user with every top-level field of patch written over
// u. Fields absent from patch are kept.
func (u User) Merge(patch User) User {
	merged := make(User, len(u)+len(patch))
	for k, v := range u {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Package models holds server-side row models that never cross the wire.
// The case and report payloads reuse the shared wire model.
package models

import "time"

type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
}

type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}

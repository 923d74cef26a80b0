package chat

import "time"

// Session is the snapshot handed out by the session store. The store owns the
// mutable history; callers only ever see copies.
type Session struct {
	ID           string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessAt time.Time `json:"lastAccessAt"`
}

package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a task. Servers may send it as a JSON number or string;
// it is kept as its decimal/string form and compared verbatim.
type ID string

// UnmarshalJSON accepts both 42 and "42".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid task id: %s", data)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer ids as numbers and anything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Task represents a single to-do item.
type Task struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TaskFields is the editable part of a task.
type TaskFields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Profile is the account information shown to the user.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// DisplayName returns the username, or the email when the username is empty.
func (p Profile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// ProfileUpdate carries the fields to change. Empty fields are not sent.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Registration is the payload for creating an account.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Account is the server's answer to a registration.
type Account struct {
	ID       ID     `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginResult is the body of a login response.
type LoginResult struct {
	Token string `json:"token"`
}

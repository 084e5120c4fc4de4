// Package lead defines the structured business data a voice conversation
// produces: the caller's contact record, the conversation summary, and the
// transcript messages both are derived from.
package lead

import (
	"strings"
	"time"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one transcript entry. Messages are immutable once created.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Contact methods accepted for Data.PreferredContactMethod.
const (
	ContactEmail = "email"
	ContactPhone = "phone"
	ContactSMS   = "sms"
)

// Data is a partial contact record. Every field is optional.
type Data struct {
	Name                   string `json:"name,omitempty"`
	Email                  string `json:"email,omitempty"`
	Phone                  string `json:"phone,omitempty"`
	Company                string `json:"company,omitempty"`
	Interest               string `json:"interest,omitempty"`
	PreferredContactMethod string `json:"preferredContactMethod,omitempty"`
	PreferredTime          string `json:"preferredTime,omitempty"`
	Notes                  string `json:"notes,omitempty"`
}

// IsEmpty reports whether no field is set.
func (d Data) IsEmpty() bool {
	return d == Data{}
}

// HasContact reports whether the lead can be reached by email or phone.
func (d Data) HasContact() bool {
	return d.Email != "" || d.Phone != ""
}

// Merge returns d with every non-empty field of update applied on top.
// Empty fields in update never clear existing values.
func (d Data) Merge(update Data) Data {
	d.Name = pick(update.Name, d.Name)
	d.Email = pick(update.Email, d.Email)
	d.Phone = pick(update.Phone, d.Phone)
	d.Company = pick(update.Company, d.Company)
	d.Interest = pick(update.Interest, d.Interest)
	d.PreferredContactMethod = pick(update.PreferredContactMethod, d.PreferredContactMethod)
	d.PreferredTime = pick(update.PreferredTime, d.PreferredTime)
	d.Notes = pick(update.Notes, d.Notes)
	return d
}

// AppendNote adds note to the free-text notes, separated by "; ".
func (d Data) AppendNote(note string) Data {
	note = strings.TrimSpace(note)
	switch {
	case note == "":
	case d.Notes == "":
		d.Notes = note
	case !strings.Contains(d.Notes, note):
		d.Notes = d.Notes + "; " + note
	}
	return d
}

func pick(update, current string) string {
	if s := strings.TrimSpace(update); s != "" {
		return s
	}
	return current
}

package types

import (
	"time"
)

type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	Id           int       `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"email_address,omitempty"`
	Role         Role      `json:"role"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Task struct {
	Id          int       `json:"id"`
	ExternalId  string    `json:"external_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatorId   int       `json:"creator_id"`
	AssigneeIds []int     `json:"assignee_ids"`
	DueDate     time.Time `json:"due_date"`
	Priority    string    `json:"priority"`
	StartTime   string    `json:"start_time,omitempty"`
	EndTime     string    `json:"end_time,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type Report struct {
	Id            int       `json:"id"`
	TaskId        int       `json:"task_id"`
	TaskTitle     string    `json:"task_title,omitempty"`
	StaffId       int       `json:"staff_id"`
	StaffName     string    `json:"staff_name,omitempty"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	ScreenshotUrl string    `json:"screenshot_url,omitempty"`
	WorkLink      string    `json:"work_link,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Message is a chat message as it travels on the wire and sits in the
// store. SenderName is captured at send time, not looked up on read.
type Message struct {
	Id         int       `json:"id,omitempty"`
	SenderId   int       `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

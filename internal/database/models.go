package database

import "time"

type User struct {
	Id           int
	Name         string
	EmailAddress string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Task struct {
	Id          int
	ExternalId  string
	Title       string
	Description string
	CreatorId   int
	AssigneeIds []int
	DueDate     time.Time
	Priority    string
	StartTime   string
	EndTime     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Report struct {
	Id            int
	TaskId        int
	TaskTitle     string
	StaffId       int
	StaffName     string
	Status        string
	Notes         string
	ScreenshotUrl string
	WorkLink      string
	SubmittedAt   time.Time
}

type Message struct {
	Id         int
	SenderId   int
	SenderName string
	Text       string
	CreatedAt  time.Time
}

type CreateAccountParams struct {
	Name         string
	EmailAddress string
	Role         string
	PasswordHash string
}

type CreateTaskParams struct {
	ExternalId  string
	Title       string
	Description string
	CreatorId   int
	AssigneeIds []int
	DueDate     time.Time
	Priority    string
	StartTime   string
	EndTime     string
}

type CreateReportParams struct {
	TaskId        int
	StaffId       int
	Status        string
	Notes         string
	ScreenshotUrl string
	WorkLink      string
}

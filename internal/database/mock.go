package database

import (
	"github.com/stretchr/testify/mock"
)

type MockTaskRoomRepository struct {
	mock.Mock
}

func (m *MockTaskRoomRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockTaskRoomRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTaskRoomRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTaskRoomRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTaskRoomRepository) ListAccounts() ([]User, error) {
	args := m.Called()
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockTaskRoomRepository) CreateTask(params CreateTaskParams) (Task, error) {
	args := m.Called(params)
	return args.Get(0).(Task), args.Error(1)
}
func (m *MockTaskRoomRepository) GetTaskById(taskId int) (Task, error) {
	args := m.Called(taskId)
	return args.Get(0).(Task), args.Error(1)
}
func (m *MockTaskRoomRepository) ListTasksForAssignee(accountId int) ([]Task, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Task), args.Error(1)
}
func (m *MockTaskRoomRepository) ListTasksForCreator(accountId int) ([]Task, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Task), args.Error(1)
}
func (m *MockTaskRoomRepository) CreateReport(params CreateReportParams) (Report, error) {
	args := m.Called(params)
	return args.Get(0).(Report), args.Error(1)
}
func (m *MockTaskRoomRepository) ListReports(limit, offset int) ([]Report, error) {
	args := m.Called(limit, offset)
	return args.Get(0).([]Report), args.Error(1)
}
func (m *MockTaskRoomRepository) ListReportsForStaff(accountId int) ([]Report, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Report), args.Error(1)
}
func (m *MockTaskRoomRepository) CreateMessage(msg Message) (Message, error) {
	args := m.Called(msg)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockTaskRoomRepository) RecentMessages(limit int) ([]Message, error) {
	args := m.Called(limit)
	return args.Get(0).([]Message), args.Error(1)
}

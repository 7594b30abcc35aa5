package database

type TaskRoomRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListAccounts() ([]User, error)
	CreateTask(params CreateTaskParams) (Task, error)
	GetTaskById(taskId int) (Task, error)
	ListTasksForAssignee(accountId int) ([]Task, error)
	ListTasksForCreator(accountId int) ([]Task, error)
	CreateReport(params CreateReportParams) (Report, error)
	ListReports(limit, offset int) ([]Report, error)
	ListReportsForStaff(accountId int) ([]Report, error)
	CreateMessage(msg Message) (Message, error)
	RecentMessages(limit int) ([]Message, error)
}

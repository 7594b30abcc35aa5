package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lib/pq"
	"github.com/npeters/go-taskroom/internal/database"
	"github.com/npeters/go-taskroom/internal/server"
	"github.com/npeters/go-taskroom/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type CreateTaskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssigneeIds []int     `json:"assignee_ids"`
	DueDate     time.Time `json:"due_date"`
	Priority    string    `json:"priority"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
}

type CreateReportRequest struct {
	TaskId        int    `json:"task_id"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
	ScreenshotUrl string `json:"screenshot_url"`
	WorkLink      string `json:"work_link"`
}

type ReportPage struct {
	Data        []types.Report `json:"data"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages,omitempty"`
}

var reportStatuses = []string{"completed", "partial", "not_completed"}
var taskPriorities = []string{"low", "medium", "high"}

func (s *TaskRoomApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *TaskRoomApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *TaskRoomApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	role := types.Role(req.Role)
	if req.Role == "" {
		role = types.RoleStaff
	}
	if !role.Valid() {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Name:         req.Name,
		EmailAddress: req.Email,
		Role:         string(role),
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		var errResp *ApiError
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			errResp = NewConflictError("account already exists")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:           newUser.Id,
		Name:         newUser.Name,
		EmailAddress: newUser.EmailAddress,
		Role:         types.Role(newUser.Role),
		CreatedAt:    newUser.CreatedAt,
		UpdatedAt:    newUser.UpdatedAt,
	})
}

func (s *TaskRoomApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:           dbUser.Id,
		Name:         dbUser.Name,
		EmailAddress: dbUser.EmailAddress,
		Role:         types.Role(dbUser.Role),
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}

	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, LoginResponse{Token: token, User: u})
}

func (s *TaskRoomApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:           user.Id,
		Name:         user.Name,
		EmailAddress: user.EmailAddress,
		Role:         types.Role(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
}

func (s *TaskRoomApp) listUsers(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	caller, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if caller.Role == string(types.RoleStaff) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUsers, err := s.db.ListAccounts()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, types.User{
			Id:           u.Id,
			Name:         u.Name,
			EmailAddress: u.EmailAddress,
			Role:         types.Role(u.Role),
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *TaskRoomApp) createTask(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Title == "" || req.DueDate.IsZero() {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Priority == "" {
		req.Priority = "medium"
	}
	if !slices.Contains(taskPriorities, req.Priority) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	creator, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// staff always self-assign; managers and admins must name assignees
	assigneeIds := req.AssigneeIds
	if creator.Role == string(types.RoleStaff) {
		assigneeIds = []int{userId}
	} else if len(assigneeIds) == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateTaskParams{
		ExternalId:  sid,
		Title:       req.Title,
		Description: req.Description,
		CreatorId:   userId,
		AssigneeIds: assigneeIds,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}

	newTask, err := s.db.CreateTask(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// Fire-and-forget: the task is already committed, so a missed
	// notification must never fail this response. Offline assignees simply
	// see the task on their next read.
	for _, assigneeId := range newTask.AssigneeIds {
		s.dispatcher.DeliverToUser(assigneeId, server.EventNewTask, server.TaskAssigned{
			Title:       newTask.Title,
			CreatorName: creator.Name,
		})
	}

	s.writeJson(w, http.StatusCreated, taskResponse(newTask))
}

func (s *TaskRoomApp) listTasks(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	caller, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var dbTasks []database.Task
	if caller.Role == string(types.RoleStaff) {
		dbTasks, err = s.db.ListTasksForAssignee(userId)
	} else {
		dbTasks, err = s.db.ListTasksForCreator(userId)
	}
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tasks := make([]types.Task, 0, len(dbTasks))
	for _, t := range dbTasks {
		tasks = append(tasks, taskResponse(t))
	}

	s.writeJson(w, http.StatusOK, tasks)
}

func taskResponse(t database.Task) types.Task {
	return types.Task{
		Id:          t.Id,
		ExternalId:  t.ExternalId,
		Title:       t.Title,
		Description: t.Description,
		CreatorId:   t.CreatorId,
		AssigneeIds: t.AssigneeIds,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (s *TaskRoomApp) createReport(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.TaskId == 0 || req.ScreenshotUrl == "" || !slices.Contains(reportStatuses, req.Status) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	task, err := s.db.GetTaskById(req.TaskId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	staff, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newReport, err := s.db.CreateReport(database.CreateReportParams{
		TaskId:        req.TaskId,
		StaffId:       userId,
		Status:        req.Status,
		Notes:         req.Notes,
		ScreenshotUrl: req.ScreenshotUrl,
		WorkLink:      req.WorkLink,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// best-effort nudge to the task's creator; the write above stands
	// regardless of whether they are online
	s.dispatcher.DeliverToUser(task.CreatorId, server.EventNewReport, server.ReportSubmitted{
		TaskTitle: task.Title,
		StaffName: staff.Name,
	})

	s.writeJson(w, http.StatusCreated, types.Report{
		Id:            newReport.Id,
		TaskId:        newReport.TaskId,
		TaskTitle:     task.Title,
		StaffId:       newReport.StaffId,
		StaffName:     staff.Name,
		Status:        newReport.Status,
		Notes:         newReport.Notes,
		ScreenshotUrl: newReport.ScreenshotUrl,
		WorkLink:      newReport.WorkLink,
		SubmittedAt:   newReport.SubmittedAt,
	})
}

func (s *TaskRoomApp) listReports(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	caller, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var dbReports []database.Report
	page := 1
	if caller.Role == string(types.RoleStaff) {
		dbReports, err = s.db.ListReportsForStaff(userId)
	} else {
		limit := 9
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			limit, err = strconv.Atoi(limitStr)
			if err != nil || limit <= 0 {
				errResp := NewBadRequestError()
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}
		if pageStr := r.URL.Query().Get("page"); pageStr != "" {
			page, err = strconv.Atoi(pageStr)
			if err != nil || page <= 0 {
				errResp := NewBadRequestError()
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}
		dbReports, err = s.db.ListReports(limit, (page-1)*limit)
	}
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	reports := make([]types.Report, 0, len(dbReports))
	for _, rep := range dbReports {
		reports = append(reports, types.Report{
			Id:            rep.Id,
			TaskId:        rep.TaskId,
			TaskTitle:     rep.TaskTitle,
			StaffId:       rep.StaffId,
			StaffName:     rep.StaffName,
			Status:        rep.Status,
			Notes:         rep.Notes,
			ScreenshotUrl: rep.ScreenshotUrl,
			WorkLink:      rep.WorkLink,
			SubmittedAt:   rep.SubmittedAt,
		})
	}

	s.writeJson(w, http.StatusOK, ReportPage{Data: reports, CurrentPage: page})
}

func (s *TaskRoomApp) getMessages(w http.ResponseWriter, r *http.Request) {
	dbMessages, err := s.db.RecentMessages(s.chatHistoryLimit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, types.Message{
			Id:         m.Id,
			SenderId:   m.SenderId,
			SenderName: m.SenderName,
			Text:       m.Text,
			CreatedAt:  m.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, messages)
}

// serveWs upgrades the connection after validating the credential carried in
// the query string. Validation happens exactly once, before the upgrade; a
// rejected credential never reaches the hub or the registry.
func (s *TaskRoomApp) serveWs(w http.ResponseWriter, r *http.Request) {
	user, err := s.resolveCredential(r.URL.Query().Get("token"))
	if err != nil {
		s.log.Println("websocket handshake rejected:", err)
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(user, conn, s.hub, s.log)

	if !s.hub.RegisterClient(client) {
		s.log.Println("hub stopped, rejecting connection from", user.Name)
		if bytes, err := json.Marshal(server.ErrServiceUnavailable()); err == nil {
			conn.WriteMessage(websocket.TextMessage, bytes)
		}
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}

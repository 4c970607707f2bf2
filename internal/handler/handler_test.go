package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/service"
	"helpdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// staticResolver accepts "<role>-token" as an access token
type staticResolver struct{}

func (staticResolver) ResolvePrincipal(ctx context.Context, token string) (service.Principal, error) {
	switch token {
	case "employee-token":
		return service.Principal{UserID: "emp-1", Role: model.RoleEmployee}, nil
	case "hr-token":
		return service.Principal{UserID: "hr-1", Role: model.RoleHR}, nil
	}
	return service.Principal{}, service.ErrUnauthenticated
}

type fakeConversation struct {
	submit  func(p service.Principal, req service.SubmitMessageRequest) (*service.BotReplyResponse, error)
	email   func(req service.EmailMessageRequest) (*service.BotReplyResponse, error)
	reply   func(p service.Principal, req service.ReplyRequest) (*service.ChatResponse, error)
	history func(p service.Principal, id string) (*service.ChannelHistoryResponse, error)
}

func (f *fakeConversation) SubmitEmployeeMessage(ctx context.Context, p service.Principal, req service.SubmitMessageRequest) (*service.BotReplyResponse, error) {
	return f.submit(p, req)
}

func (f *fakeConversation) SubmitEmailMessage(ctx context.Context, req service.EmailMessageRequest) (*service.BotReplyResponse, error) {
	return f.email(req)
}

func (f *fakeConversation) ReplyAsHumanAgent(ctx context.Context, p service.Principal, req service.ReplyRequest) (*service.ChatResponse, error) {
	return f.reply(p, req)
}

func (f *fakeConversation) ListChannelHistory(ctx context.Context, p service.Principal, id string) (*service.ChannelHistoryResponse, error) {
	return f.history(p, id)
}

type fakeChannels struct {
	listStatus string
	lastPage   [2]int
}

func (f *fakeChannels) CreateChannel(ctx context.Context, p service.Principal, req service.CreateChannelRequest) (*service.ChannelResponse, error) {
	owner := p.UserID
	if req.UserID != "" {
		if !p.IsHR() {
			return nil, service.ErrForbidden
		}
		owner = req.UserID
	}
	return &service.ChannelResponse{ID: "ch-new", UserID: owner, Status: model.ChannelStatusInProgress}, nil
}

func (f *fakeChannels) GetChannel(ctx context.Context, p service.Principal, id string) (*service.ChannelResponse, error) {
	if id != "ch-1" {
		return nil, fmt.Errorf("%w: channel", service.ErrNotFound)
	}
	return &service.ChannelResponse{ID: id, UserID: "emp-1", Status: model.ChannelStatusInProgress}, nil
}

func (f *fakeChannels) UpdateStatus(ctx context.Context, p service.Principal, req service.UpdateStatusRequest) (*service.ChannelResponse, error) {
	if !model.ChannelStatus(req.Status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", service.ErrInvalidInput, req.Status)
	}
	return &service.ChannelResponse{ID: req.ChannelID, Status: model.ChannelStatus(req.Status)}, nil
}

func (f *fakeChannels) Reopen(ctx context.Context, p service.Principal, id string) (*service.ChannelResponse, error) {
	return &service.ChannelResponse{ID: id, Status: model.ChannelStatusInProgress}, nil
}

func (f *fakeChannels) Dashboard(ctx context.Context, p service.Principal, page, limit int) ([]service.ChannelResponse, int64, error) {
	f.lastPage = [2]int{page, limit}
	return []service.ChannelResponse{{ID: "ch-1"}}, 1, nil
}

func (f *fakeChannels) ListChannels(ctx context.Context, p service.Principal, status string, page, limit int) ([]service.ChannelResponse, int64, error) {
	f.listStatus = status
	f.lastPage = [2]int{page, limit}
	return []service.ChannelResponse{}, 0, nil
}

type fakeStatistics struct {
	start, end time.Time
}

func (f *fakeStatistics) GetChannelStatistics(ctx context.Context, p service.Principal, start, end time.Time) (*model.ChannelStatistics, error) {
	f.start, f.end = start, end
	return &model.ChannelStatistics{TotalChannels: 3, TimeRangeStartDate: start, TimeRangeEndDate: end}, nil
}

func newRouter(register ...func(*gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	for _, fn := range register {
		fn(r.Group(""))
	}
	return r
}

func do(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return out
}

func chatRouter(conv *fakeConversation) *gin.Engine {
	authMW := middleware.Authenticate(staticResolver{})
	noLimit := func(c *gin.Context) { c.Next() }
	return newRouter(NewChatHandler(conv, authMW, noLimit).RegisterRoutes)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", fmt.Errorf("%w: empty message", service.ErrInvalidInput), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: channel", service.ErrNotFound), http.StatusNotFound},
		{"unauthenticated", service.ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"storage", fmt.Errorf("%w: insert chat: boom", service.ErrStorage), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"upstream", &service.UpstreamError{ChannelID: "ch-1", Sequence: 3, Err: errors.New("timeout")}, http.StatusBadGateway},
		{"upstream deadline", &service.UpstreamError{ChannelID: "ch-1", Sequence: 3, Err: context.DeadlineExceeded}, http.StatusBadGateway},
		{"lock wait timed out", context.DeadlineExceeded, http.StatusRequestTimeout},
		{"client cancelled", context.Canceled, http.StatusRequestTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRespondError_HidesStorageDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, fmt.Errorf("%w: insert chat: password=secret", service.ErrStorage))

	if strings.Contains(w.Body.String(), "secret") {
		t.Errorf("storage detail leaked: %s", w.Body.String())
	}
	if len(c.Errors) != 1 {
		t.Errorf("error not recorded on context")
	}
}

func TestSubmitMessage(t *testing.T) {
	conv := &fakeConversation{
		submit: func(p service.Principal, req service.SubmitMessageRequest) (*service.BotReplyResponse, error) {
			if p.UserID != "emp-1" {
				t.Errorf("principal = %+v", p)
			}
			return &service.BotReplyResponse{ChannelID: "ch-1", Reply: "15 days", Category: "Leave", EmployeeSequence: 1, BotSequence: 2}, nil
		},
	}
	r := chatRouter(conv)

	w := do(r, http.MethodPost, "/api/channels/chat", "employee-token", map[string]string{"message": "How many leave days?"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	data := decode(t, w)["data"].(map[string]any)
	if data["reply"] != "15 days" || data["bot_sequence"].(float64) != 2 {
		t.Errorf("data = %v", data)
	}
}

func TestSubmitMessage_RequiresAuth(t *testing.T) {
	r := chatRouter(&fakeConversation{})

	w := do(r, http.MethodPost, "/api/channels/chat", "", map[string]string{"message": "hi"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSubmitMessage_MissingMessage(t *testing.T) {
	r := chatRouter(&fakeConversation{})

	w := do(r, http.MethodPost, "/api/channels/chat", "employee-token", map[string]string{"channel_id": "ch-1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSubmitMessage_UpstreamFailure(t *testing.T) {
	conv := &fakeConversation{
		submit: func(p service.Principal, req service.SubmitMessageRequest) (*service.BotReplyResponse, error) {
			return nil, &service.UpstreamError{ChannelID: "ch-1", Sequence: 5, Err: errors.New("connection refused")}
		},
	}
	r := chatRouter(conv)

	w := do(r, http.MethodPost, "/api/channels/chat", "employee-token", map[string]string{"channel_id": "ch-1", "message": "hi"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	var body struct {
		response.Response
		Details UpstreamFailure `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Details.ChannelID != "ch-1" || body.Details.Sequence != 5 {
		t.Errorf("details = %+v", body.Details)
	}
}

func TestSubmitEmailMessage_NoAuthNeeded(t *testing.T) {
	conv := &fakeConversation{
		email: func(req service.EmailMessageRequest) (*service.BotReplyResponse, error) {
			if req.Email != "alice@example.com" {
				return nil, fmt.Errorf("%w: user", service.ErrNotFound)
			}
			return &service.BotReplyResponse{ChannelID: "ch-9", Reply: "ok", EmployeeSequence: 1, BotSequence: 2}, nil
		},
	}
	r := chatRouter(conv)

	w := do(r, http.MethodPost, "/api/channels/chat-email", "", map[string]string{"email": "alice@example.com", "message": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/channels/chat-email", "", map[string]string{"email": "bob@example.com", "message": "hello"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown sender status = %d, want 404", w.Code)
	}

	w = do(r, http.MethodPost, "/api/channels/chat-email", "", map[string]string{"email": "not-an-email", "message": "hello"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed email status = %d, want 400", w.Code)
	}
}

func TestReply_Forbidden(t *testing.T) {
	conv := &fakeConversation{
		reply: func(p service.Principal, req service.ReplyRequest) (*service.ChatResponse, error) {
			return nil, service.ErrForbidden
		},
	}
	r := chatRouter(conv)

	w := do(r, http.MethodPost, "/api/channels/reply", "employee-token",
		map[string]string{"channel_id": "ch-2", "sender": "employee", "message": "hi"})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestHistory(t *testing.T) {
	conv := &fakeConversation{
		history: func(p service.Principal, id string) (*service.ChannelHistoryResponse, error) {
			return &service.ChannelHistoryResponse{
				ChannelID: id,
				Status:    model.ChannelStatusInProgress,
				Messages: []service.ChatResponse{
					{Sender: model.SenderEmployee, Sequence: 1},
					{Sender: model.SenderBot, Sequence: 2},
				},
			}, nil
		},
	}
	r := chatRouter(conv)

	w := do(r, http.MethodGet, "/api/channels/ch-1/chat", "hr-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	msgs := decode(t, w)["data"].(map[string]any)["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("messages = %d, want 2", len(msgs))
	}
}

func TestChannelRoutes(t *testing.T) {
	channels := &fakeChannels{}
	r := newRouter(NewChannelHandler(channels, middleware.Authenticate(staticResolver{})).RegisterRoutes)

	if w := do(r, http.MethodPost, "/api/channels", "employee-token", nil); w.Code != http.StatusCreated {
		t.Errorf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/channels", "employee-token", map[string]string{"user_id": "emp-2"}); w.Code != http.StatusForbidden {
		t.Errorf("create for other user status = %d, want 403", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/channels", "employee-token", nil); w.Code != http.StatusForbidden {
		t.Errorf("employee list status = %d, want 403", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/channels?status=forwarded&page=2&limit=5", "hr-token", nil); w.Code != http.StatusOK {
		t.Errorf("hr list status = %d", w.Code)
	}
	if channels.listStatus != "forwarded" || channels.lastPage != [2]int{2, 5} {
		t.Errorf("list args = %q %v", channels.listStatus, channels.lastPage)
	}
	if w := do(r, http.MethodGet, "/api/channels/missing", "hr-token", nil); w.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", w.Code)
	}
	if w := do(r, http.MethodPut, "/api/channels/status", "hr-token", map[string]string{"channel_id": "ch-1", "status": "closed"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad status code = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodPut, "/api/channels/ch-1/reopen", "employee-token", nil); w.Code != http.StatusForbidden {
		t.Errorf("employee reopen status = %d, want 403", w.Code)
	}

	w := do(r, http.MethodGet, "/api/channels/dashboard", "hr-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", w.Code)
	}
	page := decode(t, w)["data"].(map[string]any)
	if page["total"].(float64) != 1 {
		t.Errorf("dashboard page = %v", page)
	}
}

func TestStatistics_DateParsing(t *testing.T) {
	stats := &fakeStatistics{}
	r := newRouter(NewStatisticsHandler(stats, middleware.Authenticate(staticResolver{})).RegisterRoutes)

	if w := do(r, http.MethodGet, "/api/statistics/channels?start_date=yesterday", "hr-token", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/statistics/channels", "employee-token", nil); w.Code != http.StatusForbidden {
		t.Errorf("employee status = %d, want 403", w.Code)
	}

	w := do(r, http.MethodGet, "/api/statistics/channels?start_date=2026-01-01T00:00:00Z&end_date=2026-02-01T00:00:00Z", "hr-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !stats.start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) || !stats.end.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("range = %v..%v", stats.start, stats.end)
	}
}

type fakeAuth struct {
	signupReq service.SignupRequest
	created   []service.CreateUserRequest
}

func (f *fakeAuth) Signup(ctx context.Context, req service.SignupRequest) (*service.UserResponse, error) {
	f.signupReq = req
	if req.Role == model.RoleHR {
		return nil, service.ErrForbidden
	}
	return &service.UserResponse{Name: req.Name, Role: model.RoleEmployee}, nil
}

func (f *fakeAuth) CreateUser(ctx context.Context, p service.Principal, req service.CreateUserRequest) (*service.UserResponse, error) {
	f.created = append(f.created, req)
	return &service.UserResponse{Name: req.Name, Role: req.Role}, nil
}

func (f *fakeAuth) EnsureUser(ctx context.Context, req service.CreateUserRequest) (bool, error) {
	return false, nil
}

func (f *fakeAuth) Login(ctx context.Context, req service.LoginRequest) (*service.TokenResponse, error) {
	return nil, service.ErrUnauthenticated
}

func (f *fakeAuth) Refresh(ctx context.Context, token string) (*service.TokenResponse, error) {
	return nil, service.ErrUnauthenticated
}

func (f *fakeAuth) Logout(ctx context.Context, token string) error { return nil }

func (f *fakeAuth) Profile(ctx context.Context, p service.Principal) (*service.UserResponse, error) {
	return &service.UserResponse{Role: p.Role}, nil
}

func (f *fakeAuth) ResolvePrincipal(ctx context.Context, token string) (service.Principal, error) {
	return staticResolver{}.ResolvePrincipal(ctx, token)
}

func TestUserCreation_OnlyHRAssignsHR(t *testing.T) {
	auth := &fakeAuth{}
	r := newRouter(NewAuthHandler(auth, middleware.CookieOptions{}, middleware.Authenticate(auth)).RegisterRoutes)

	signup := map[string]string{"name": "Mallory", "email": "m@corp.com", "mobile": "5550199", "password": "secret123", "role": "hr"}
	if w := do(r, http.MethodPost, "/api/auth/signup", "", signup); w.Code != http.StatusForbidden {
		t.Errorf("self-registered hr status = %d, want 403", w.Code)
	}
	if auth.signupReq.Role != model.RoleHR {
		t.Errorf("role not passed to the service: %+v", auth.signupReq)
	}

	create := map[string]string{"name": "Hana", "email": "h@corp.com", "mobile": "5550200", "password": "secret123", "role": "hr"}
	if w := do(r, http.MethodPost, "/api/users", "", create); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create status = %d, want 401", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/users", "employee-token", create); w.Code != http.StatusForbidden {
		t.Errorf("employee create status = %d, want 403", w.Code)
	}
	if len(auth.created) != 0 {
		t.Fatalf("service reached for non-hr callers: %+v", auth.created)
	}

	w := do(r, http.MethodPost, "/api/users", "hr-token", create)
	if w.Code != http.StatusCreated {
		t.Fatalf("hr create status = %d, body = %s", w.Code, w.Body.String())
	}
	if role := decode(t, w)["data"].(map[string]any)["role"]; role != model.RoleHR {
		t.Errorf("created role = %v, want hr", role)
	}
}

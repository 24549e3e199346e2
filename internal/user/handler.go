package user

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	appErrors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, p *auth.Principal, q ListQuery) (*ListResult, error)
	GetUser(ctx context.Context, p *auth.Principal, userID int64, includeAssociations bool) (*UserInfo, error)
	Create(ctx context.Context, p *auth.Principal, dto CreateUserDTO) (int64, error)
	Update(ctx context.Context, p *auth.Principal, dto UpdateUserDTO) (int64, error)
	Delete(ctx context.Context, p *auth.Principal, userIDs []int64) (int64, error)
	ResetPassword(ctx context.Context, p *auth.Principal, dto ResetPasswordDTO) (int64, error)
	ChangeStatus(ctx context.Context, p *auth.Principal, dto ChangeStatusDTO) (int64, error)
	AuthRoles(ctx context.Context, p *auth.Principal, userID int64) (*AuthRoleInfo, error)
	AssignRoles(ctx context.Context, p *auth.Principal, dto AssignRolesDTO) error
	AssignPosts(ctx context.Context, p *auth.Principal, dto AssignPostsDTO) error
	Options(ctx context.Context, p *auth.Principal) ([]*Option, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
	}
}

const dateLayout = "2006-01-02"

// ListUsers GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	q, err := parseListQuery(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Service.List(r.Context(), p, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// UserOptions GET /users/options
func (h *Handler) UserOptions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	opts, err := h.Service.Options(r.Context(), p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, opts)
}

// NewUserInfo GET /users/info
func (h *Handler) NewUserInfo(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	info, err := h.Service.GetUser(r.Context(), p, 0, true)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, info)
}

// GetUser GET /users/{userId}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	userID, err := h.PathInt64(r, "userId")
	if err != nil || userID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	withAssoc, _ := strconv.ParseBool(r.URL.Query().Get("associations"))

	info, err := h.Service.GetUser(r.Context(), p, userID, withAssoc)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, info)
}

// CreateUser POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var dto CreateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	rows, err := h.Service.Create(r.Context(), p, dto)
	h.writeRows(w, http.StatusCreated, rows, err)
}

// UpdateUser PUT /users
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var dto UpdateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	rows, err := h.Service.Update(r.Context(), p, dto)
	h.writeRows(w, http.StatusOK, rows, err)
}

// DeleteUsers DELETE /users/{userIds}, ids comma separated
func (h *Handler) DeleteUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	ids, err := transport.ParseIDList(chi.URLParam(r, "userId"))
	if err != nil || len(ids) == 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid user ids")
		return
	}

	rows, err := h.Service.Delete(r.Context(), p, ids)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RowsResponse{Rows: rows})
}

// ResetPassword PUT /users/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var dto ResetPasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	rows, err := h.Service.ResetPassword(r.Context(), p, dto)
	h.writeRows(w, http.StatusOK, rows, err)
}

// ChangeStatus PUT /users/change-status
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var dto ChangeStatusDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	rows, err := h.Service.ChangeStatus(r.Context(), p, dto)
	h.writeRows(w, http.StatusOK, rows, err)
}

// AuthRoles GET /users/{userId}/auth-role
func (h *Handler) AuthRoles(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	userID, err := h.PathInt64(r, "userId")
	if err != nil || userID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	info, err := h.Service.AuthRoles(r.Context(), p, userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, info)
}

// AssignRoles PUT /users/auth-role
func (h *Handler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var dto AssignRolesDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if err := h.Service.AssignRoles(r.Context(), p, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignPosts PUT /users/auth-post
func (h *Handler) AssignPosts(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var dto AssignPostsDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if err := h.Service.AssignPosts(r.Context(), p, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, appErrors.ErrInvalidToken)
		return nil, false
	}
	return p, true
}

// writeRows reports a mutation that touched no row as a failed operation.
func (h *Handler) writeRows(w http.ResponseWriter, status int, rows int64, err error) {
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if rows == 0 {
		h.HandleServiceError(w, appErrors.ErrOperationFailed)
		return
	}
	h.WriteJSON(w, status, RowsResponse{Rows: rows})
}

func parseListQuery(r *http.Request) (ListQuery, error) {
	v := r.URL.Query()
	q := ListQuery{
		UserName: v.Get("user_name"),
		Phone:    v.Get("phone"),
		Status:   v.Get("status"),
	}

	if raw := v.Get("dept_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, appErrors.NewValidationError("invalid dept_id", appErrors.ErrCodeValidationFailed)
		}
		q.DeptID = id
	}
	if raw := v.Get("begin_time"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return q, appErrors.NewValidationError("begin_time must be YYYY-MM-DD", appErrors.ErrCodeValidationFailed)
		}
		q.BeginTime = &t
	}
	if raw := v.Get("end_time"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return q, appErrors.NewValidationError("end_time must be YYYY-MM-DD", appErrors.ErrCodeValidationFailed)
		}
		// inclusive of the whole end day
		end := t.Add(24*time.Hour - time.Nanosecond)
		q.EndTime = &end
	}

	pageSize, _ := strconv.Atoi(v.Get("page_size"))
	pageNum, _ := strconv.Atoi(v.Get("page_num"))
	q.Limit = pageSize
	q.Normalize()
	if pageNum > 1 {
		q.Offset = (pageNum - 1) * q.Limit
	}
	return q, nil
}

package dept

import (
	"context"
	"log/slog"
	"net/http"

	appErrors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/internal/transport"
)

type ServiceAPI interface {
	Tree(ctx context.Context, p *auth.Principal) ([]*TreeNode, error)
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

// DeptTree GET /users/dept-tree
func (h *Handler) DeptTree(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, appErrors.ErrInvalidToken)
		return
	}

	tree, err := h.Service.Tree(r.Context(), p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tree)
}

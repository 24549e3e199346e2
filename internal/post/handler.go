package post

import (
	"context"
	"net/http"

	"github.com/frahmantamala/account-admin/internal/transport"
)

type ServiceAPI interface {
	GetAllPosts(ctx context.Context) ([]PostResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Service.GetAllPosts(r.Context())
	if err != nil {
		h.Logger.Error("GetPosts: failed to get posts", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PostsResponse{
		Posts: posts,
	})
}
